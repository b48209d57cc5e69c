// Package config provides configuration loading for the LaserStrike client.
//
// The config package handles:
//   - Reading an optional config file (yaml, json or toml)
//   - Environment overrides with the LASERSTRIKE_ prefix
//   - Defaults for every setting
//   - Validation and backend URL derivation
//
// Configuration Sources:
//
// Values are resolved in viper's order: explicit Set calls (CLI flags),
// environment, config file, defaults. The backend base URL may also come
// from NEXT_PUBLIC_API_URL so a console can share the web front end's
// environment file.
//
// Usage:
//
//	cfg, err := config.Load("laserstrike.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	wsURL, err := cfg.WebSocketURL(playerID)
//
// WebSocket Endpoint:
//
// The realtime endpoint is derived from the HTTP base URL by rewriting the
// scheme (http to ws, https to wss) and appending /ws/{playerId}.
package config
