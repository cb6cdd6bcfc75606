// Package config loads the dashboard configuration.
//
// # Configuration Sources
//
// Configuration is layered, later layers overriding earlier ones:
//
//	1. Default values (Default)
//	2. A YAML file: $DASH_CONFIG_FILE, config.yaml or configs/config.yaml
//	3. Environment variables, after a .env file is loaded when present
//
// # Environment Variables
//
// Variables follow the pattern DASH_<SECTION>_<FIELD>:
//
//	DASH_SERVER_PORT=8080
//	DASH_SOURCES_DOCUMENT_ID=1AbC...
//	DASH_SOURCES_TABS=primary:0,barometer:123456
//	DASH_SOURCES_CANDIDATE_TABS=0,123456,987654
//	DASH_FEATURES_REMOTE_FETCH=false
//	DASH_LOCALE_LANGUAGE=fi
//
// # Feature Toggles
//
// FeaturesConfig replaces build-time switches. The loader receives it
// explicitly and skips the remote tier, bundled workbook or location
// discovery when the matching toggle is off. PersistRemote is off by
// default; when on, remotely fetched datasets are written to the data
// directory and served by the local tier afterwards.
//
// # Validation
//
// Load rejects out-of-range ports, non-positive timeouts, a discovery
// concurrency below one and locale tags that do not parse.
package config
