package config

import (
	"os"

	"git.home.luguber.info/inful/buildveto/internal/foundation/errors"
)

const exampleConfig = `version: "1"

daemon:
  interval: 1m
  http_addr: ":9464"
  data_dir: ./buildveto-data

# notify:
#   nats_url: nats://localhost:4222
#   subject: buildveto.inconsistency

projects:
  - name: app
    sourcecontrol:
      type: veto
      triggers:
        - type: git
          path: ../library
          branch: main
        - type: filesystem
          folder: ./vendor
      buildstatus:
        type: buildstatus
        log_dir: ./logs/library
`

// Init writes an example configuration to path.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", path).Build()
	}
	if err := os.WriteFile(path, []byte(exampleConfig), 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write config file").
			WithContext("path", path).Build()
	}
	return nil
}
