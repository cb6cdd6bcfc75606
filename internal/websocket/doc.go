// Package websocket relays embed height messages between chart surfaces and
// the documents hosting them.
//
// Clients connect to /ws/embed/{chartId}?role=surface|host. A surface sends
// JSON observations ({"event":"resize","height":412,"embedded":true}); its
// embed.Session runs the height-sync state machine and posts chart-height
// messages to the Hub. The Hub delivers each message to the host clients of
// the same chart id and remembers the last one so hosts joining later start
// from the current height.
//
// The Hub loop is the only writer to client send channels. A host whose
// buffer is full is disconnected rather than allowed to stall delivery.
package websocket
