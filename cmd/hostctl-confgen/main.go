// Command hostctl-confgen writes starter configuration files for the
// agent and validates existing ones, so a bad install fails at setup
// time instead of at first poll.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/hostctl/internal/config"
	"github.com/danmuck/hostctl/internal/logging"
)

const credentialsTemplate = `{
  "TOKEN": "123456789:replace-with-bot-token",
  "CHAT_ID": 0
}
`

const tunablesTemplate = `# hostctl tunables. Every key is optional; omitted keys keep their
# compiled defaults.

#proc_page_size = 20
#file_page_size = 20
#shutdown_delay = "60s"
#command_timeout = "30s"
#message_max_chars = 4000
#max_transfer_bytes = 1073741824
#snapshot_ttl = "5s"
#window_ttl = "10s"
#deny_patterns = []
#data_dir = ""
#metrics_addr = "127.0.0.1:9323"
#conflict_wait = "30s"
#transport_wait = "10s"
#retry_wait = "5s"
`

func main() {
	logging.ConfigureRuntime()

	var (
		outDir = flag.String("dir", ".", "directory to write templates into")
		check  = flag.String("check", "", "validate an existing credentials JSON and exit")
	)
	flag.Parse()

	if *check != "" {
		if _, err := config.LoadCredentials(*check); err != nil {
			log.Error().Err(err).Msg("credentials invalid")
			os.Exit(1)
		}
		fmt.Println("credentials ok")
		return
	}

	if err := writeTemplates(*outDir); err != nil {
		log.Error().Err(err).Msg("template generation failed")
		os.Exit(1)
	}
}

// writeTemplates refuses to clobber existing files.
func writeTemplates(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	files := map[string]string{
		"config.json":  credentialsTemplate,
		"hostctl.toml": tunablesTemplate,
	}
	for name, body := range files {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			log.Warn().Str("path", path).Msg("exists, skipping")
			continue
		}
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Println("wrote", path)
	}
	return nil
}
