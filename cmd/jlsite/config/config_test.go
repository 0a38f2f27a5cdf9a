package configcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	configcmder "github.com/jlsoftware/jlsite/cmd/jlsite/config"
	"github.com/jlsoftware/jlsite/pkg/config"
)

var _ = Describe("NewConfigCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := configcmder.NewConfigCmd()
		Expect(cmd.Use).To(Equal("config"))
	})

	It("has set, get, list and preset subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		cmds := cmd.Commands()
		subcommands := make([]string, 0, len(cmds))
		for _, sub := range cmds {
			subcommands = append(subcommands, sub.Name())
		}
		Expect(subcommands).To(ContainElements("set", "get", "list", "preset"))
	})
})

var _ = Describe("Config command execution", func() {
	var (
		configDir string
		out       *bytes.Buffer
	)

	// run executes the config command the way the root command would, with
	// the persistent --config-dir flag pointing at a temp dir.
	run := func(args ...string) error {
		root := &cobra.Command{Use: "jlsite"}
		root.PersistentFlags().String("config-dir", "", "")
		root.AddCommand(configcmder.NewConfigCmd())

		out.Reset()
		root.SetOut(out)
		root.SetErr(out)
		root.SetArgs(append(append([]string{"config"}, args...), "--config-dir", configDir))
		return root.Execute()
	}

	load := func() *config.Config {
		cfger, err := config.NewConfiger(configDir)
		Expect(err).NotTo(HaveOccurred())
		cfg, err := cfger.LoadConfig()
		Expect(err).NotTo(HaveOccurred())
		return cfg
	}

	BeforeEach(func() {
		configDir = GinkgoT().TempDir()
		out = &bytes.Buffer{}
	})

	Describe("set subcommand", func() {
		It("writes the value to config.toml", func() {
			Expect(run("set", "relay.model", "gpt-4o-mini")).To(Succeed())

			_, err := os.Stat(filepath.Join(configDir, "config.toml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(load().Relay.Model).To(Equal("gpt-4o-mini"))
		})

		It("masks secrets in its confirmation", func() {
			Expect(run("set", "server.admin_key", "supersecret1234")).To(Succeed())
			Expect(out.String()).NotTo(ContainSubstring("supersecret1234"))
			Expect(out.String()).To(ContainSubstring("****1234"))
			Expect(load().Server.AdminKey).To(Equal("supersecret1234"))
		})

		It("rejects unknown keys", func() {
			Expect(run("set", "invalid_key", "value")).To(HaveOccurred())
		})

		It("rejects invalid durations", func() {
			Expect(run("set", "chat.timeout", "soon")).To(HaveOccurred())
		})

		It("requires exactly two arguments", func() {
			Expect(run("set", "relay.model")).To(HaveOccurred())
			Expect(run("set")).To(HaveOccurred())
		})
	})

	Describe("get subcommand", func() {
		It("prints a previously set value", func() {
			Expect(run("set", "relay.upstream", "https://openrouter.ai/api")).To(Succeed())
			Expect(run("get", "relay.upstream")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("https://openrouter.ai/api"))
		})

		It("prints defaults for unset keys", func() {
			Expect(run("get", "server.listen")).To(Succeed())
			Expect(out.String()).To(ContainSubstring(":8081"))
		})

		It("masks secrets unless revealed", func() {
			Expect(run("set", "relay.api_key", "sk-abcdefgh")).To(Succeed())

			Expect(run("get", "relay.api_key")).To(Succeed())
			Expect(out.String()).NotTo(ContainSubstring("sk-abcdefgh"))

			Expect(run("get", "relay.api_key", "--reveal")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("sk-abcdefgh"))
		})

		It("rejects unknown keys", func() {
			Expect(run("get", "invalid_key")).To(HaveOccurred())
		})

		It("requires exactly one argument", func() {
			Expect(run("get")).To(HaveOccurred())
		})
	})

	Describe("list subcommand", func() {
		It("lists every key", func() {
			Expect(run("list")).To(Succeed())
			for _, key := range config.ValidConfigKeys() {
				Expect(out.String()).To(ContainSubstring(key))
			}
		})

		It("masks secrets", func() {
			Expect(run("set", "storage.postgres_dsn", "postgres://u:pw@db/jlsite")).To(Succeed())
			Expect(run("list")).To(Succeed())
			Expect(out.String()).NotTo(ContainSubstring("u:pw@db"))
		})

		It("rejects any arguments", func() {
			Expect(run("list", "extra")).To(HaveOccurred())
		})
	})

	Describe("preset subcommand", func() {
		It("sets the relay upstream and model and keeps other values", func() {
			Expect(run("set", "server.listen", ":9000")).To(Succeed())
			Expect(run("preset", "openai")).To(Succeed())

			cfg := load()
			Expect(cfg.Relay.Upstream).To(Equal("https://api.openai.com"))
			Expect(cfg.Relay.Model).To(Equal("gpt-4o-mini"))
			Expect(cfg.Server.Listen).To(Equal(":9000"))
		})

		It("rejects unknown presets", func() {
			Expect(run("preset", "bedrock")).To(HaveOccurred())
		})
	})
})
