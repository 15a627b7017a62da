package cli

import "gopkg.in/yaml.v3"

// ShowConfig prints the effective configuration with secrets masked.
func ShowConfig(opts Options) error {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(opts.out())
	enc.SetIndent(2)
	if err := enc.Encode(cfg.Redacted()); err != nil {
		return err
	}
	return enc.Close()
}
