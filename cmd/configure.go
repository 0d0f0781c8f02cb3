// SPDX-License-Identifier: GPL-3.0-only
package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/herokl/k8s-log-viewer/pkg/highlight"
	"github.com/herokl/k8s-log-viewer/pkg/log/client/config"
	"github.com/herokl/k8s-log-viewer/pkg/ty"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Interactive wizard to generate a configuration file",
	Long: `Launch an interactive wizard to set the shell, kubeconfig and kubectl used to
fetch logs, and the defaults of every new session.

Example:
  k8slogviewer configure
  k8slogviewer configure -c /path/to/config.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConfigWizard(configPath)
	},
}

func init() {
	rootCmd.AddCommand(configureCmd)
}

// wizardValues are the form fields, kept as strings for the inputs.
type wizardValues struct {
	shellPath      string
	kubeconfigPath string
	kubectlPath    string
	tailLines      string
	contextLines   string
	debounce       string
	matchMode      string
}

func valuesFrom(cfg *config.Config) wizardValues {
	q := cfg.Query()
	return wizardValues{
		shellPath:      cfg.ShellPath,
		kubeconfigPath: cfg.KubeconfigPath,
		kubectlPath:    cfg.KubectlPath,
		tailLines:      strconv.Itoa(q.TailLines),
		contextLines:   strconv.Itoa(q.ContextLines),
		debounce:       cfg.DebounceDelay().String(),
		matchMode:      string(q.MatchMode),
	}
}

// apply copies the form values into cfg. Values equal to the built-in
// defaults are left unset.
func (v wizardValues) apply(cfg *config.Config) error {
	cfg.ShellPath = strings.TrimSpace(v.shellPath)
	cfg.KubeconfigPath = strings.TrimSpace(v.kubeconfigPath)
	cfg.KubectlPath = strings.TrimSpace(v.kubectlPath)

	tail, err := parseCount(v.tailLines)
	if err != nil {
		return fmt.Errorf("tail lines: %w", err)
	}
	ctxLines, err := parseCount(v.contextLines)
	if err != nil {
		return fmt.Errorf("context lines: %w", err)
	}
	cfg.Defaults.TailLines = ty.OptWrap(tail)
	cfg.Defaults.ContextLines = ty.OptWrap(ctxLines)
	if d := strings.TrimSpace(v.debounce); d != "" && d != config.DefaultDebounce.String() {
		cfg.Defaults.Debounce = ty.OptWrap(d)
	}
	if v.matchMode != "" && v.matchMode != string(highlight.ModeSubstring) {
		cfg.Defaults.MatchMode = ty.OptWrap(v.matchMode)
	}
	return cfg.Validate()
}

func parseCount(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("must be >= 0, got %d", n)
	}
	return n, nil
}

func validateCount(s string) error {
	_, err := parseCount(s)
	return err
}

func validateFile(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if _, err := os.Stat(s); err != nil {
		return fmt.Errorf("cannot access %s", s)
	}
	return nil
}

func runConfigWizard(cfgPath string) error {
	targetPath, _ := config.ResolvePath(cfgPath)
	if targetPath == "" {
		return fmt.Errorf("cannot determine the config path, pass --config")
	}

	// start from the current file when there is one
	cfg, err := config.Load(targetPath)
	if err != nil {
		cfg = &config.Config{}
		cfg.Detect()
	}
	values := valuesFrom(cfg)

	fmt.Println("Welcome to the k8slogviewer configuration wizard!")
	fmt.Println()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Shell").
				Description("Interpreter running the kubectl command line (bash, or Git Bash on Windows)").
				Value(&values.shellPath).
				Validate(validateFile),
			huh.NewInput().
				Title("Kubeconfig").
				Description("Exported as KUBECONFIG to kubectl").
				Value(&values.kubeconfigPath).
				Validate(validateFile),
			huh.NewInput().
				Title("kubectl").
				Description("kubectl binary, looked up on PATH when not absolute").
				Value(&values.kubectlPath),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Tail lines").
				Description("Last lines fetched by default, 0 fetches the whole log").
				Value(&values.tailLines).
				Validate(validateCount),
			huh.NewInput().
				Title("Context lines").
				Description("Lines kept around each log keyword hit").
				Value(&values.contextLines).
				Validate(validateCount),
			huh.NewInput().
				Title("Search debounce").
				Description("Quiet period before the search is recomputed").
				Value(&values.debounce).
				Validate(func(s string) error {
					if _, err := time.ParseDuration(strings.TrimSpace(s)); err != nil {
						return fmt.Errorf("%q is not a duration", s)
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Search match mode").
				Options(
					huh.NewOption("Substring", string(highlight.ModeSubstring)),
					huh.NewOption("Whole word", string(highlight.ModeWord)),
					huh.NewOption("Regular expression", string(highlight.ModeRegex)),
				).
				Value(&values.matchMode),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	if err := values.apply(cfg); err != nil {
		return err
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to generate YAML: %w", err)
	}
	fmt.Println("\n" + strings.Repeat("─", 60))
	fmt.Println("Generated Configuration:")
	fmt.Println(strings.Repeat("─", 60))
	fmt.Println(string(out))
	fmt.Println(strings.Repeat("─", 60) + "\n")

	var confirm bool
	confirmForm := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save this configuration?").
				Description(fmt.Sprintf("Target: %s", targetPath)).
				Affirmative("Yes, save it!").
				Negative("No, cancel").
				Value(&confirm),
		),
	)
	if err := confirmForm.Run(); err != nil {
		return err
	}
	if !confirm {
		fmt.Println("Configuration not saved. Run 'k8slogviewer configure' again when ready.")
		return nil
	}

	if err := config.Save(targetPath, cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	fmt.Printf("Configuration saved to %s\n", targetPath)
	return nil
}
