// Package embed implements the height-sync protocol between an embedded
// chart surface and the host document framing it.
//
// A Reporter measures the surface on triggers (first paint, fonts loaded,
// resize, window resize) and posts a HeightMessage of kind "chart-height"
// carrying the chart id the embed was requested with. Triggers arriving within
// one frame collapse into a single measure and report cycle. Heights equal to
// the last reported one are not posted again, and nothing is posted when the
// surface is not framed.
//
// While a local overlay is open the reporter is paused. Closing it reports the
// current height exactly once, unchanged or not, so the host can shrink the
// frame back.
//
// A Session feeds a Reporter from observations sent by a remote surface over
// the websocket bridge. Params carries the URL settings of an embed.
package embed
