// Package config loads and validates the Ganymede server configuration.
//
// Configuration lives in a single JSON or YAML file split into sections
// (server, security, rate_limit, cors, certificate, auth, telemetry). Loading
// is layered: defaults first, then the file decoded strictly over them, then
// cross-field validation. Unknown sections, unknown fields and malformed
// values all reject startup; the only way to obtain a Config is through Load,
// so a partially validated value is never observable.
//
// Applications extending the base server register Overlay sections to add
// their own configuration without modifying the base schema:
//
//	var appCfg struct {
//		DataDir string `json:"data_dir" yaml:"data_dir"`
//	}
//	cfg, err := config.Load("config.json", config.WithOverlay(config.Overlay{
//		Section: "app",
//		Target:  &appCfg,
//		Validate: func() error {
//			if appCfg.DataDir == "" {
//				return errors.New("data_dir is required")
//			}
//			return nil
//		},
//	}))
package config
