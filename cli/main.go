package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fsgate/fsgate/pkg/config"
	"github.com/fsgate/fsgate/pkg/health"
)

var (
	configPath string
	serverFlag string
	Version    = "dev"

	settings = settingsFromConfig(config.DefaultConfig(), "")
	client   = &http.Client{Timeout: settings.timeout}
)

// clientSettings is the slice of the config the CLI acts on.
type clientSettings struct {
	serverURL string
	timeout   time.Duration
	retry     *retrier
}

// settingsFromConfig derives the client settings, with the --server flag
// taking precedence over the configured URL.
func settingsFromConfig(cfg *config.Config, serverOverride string) clientSettings {
	serverURL := cfg.Server.URL
	if serverOverride != "" {
		serverURL = serverOverride
	}
	return clientSettings{
		serverURL: serverURL,
		timeout:   time.Duration(cfg.Server.RequestTimeout) * time.Second,
		retry:     newRetrier(cfg.Server.RetryInitialMs, cfg.Server.RetryMaxMs, cfg.Server.RetryMaxRetries),
	}
}

// FileOpRecord mirrors the server's audit record shape.
type FileOpRecord struct {
	Operation string    `json:"Operation"`
	Path      string    `json:"Path"`
	Allowed   bool      `json:"Allowed"`
	Reason    string    `json:"Reason"`
	Bytes     int64     `json:"Bytes"`
	At        time.Time `json:"At"`
}

func main() {
	configureClientLogger()

	rootCmd := &cobra.Command{
		Use:   "fsgate",
		Short: "fsgate - guarded file access gateway",
		Long:  "Write and read files through the fsgate server, which confines operations to the host's Downloads, Documents and Desktop folders",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			applyClientLogging(cfg.Logging)
			settings = settingsFromConfig(cfg, serverFlag)
			client = &http.Client{Timeout: settings.timeout}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "/etc/fsgate/fsgate.yaml", "Config file path")
	rootCmd.PersistentFlags().StringVarP(&serverFlag, "server", "s", "", "fsgate server URL (overrides config)")

	rootCmd.AddCommand(
		writeCmd(),
		writeBinaryCmd(),
		readCmd(),
		dirsCmd(),
		auditCmd(),
		doctorCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func writeCmd() *cobra.Command {
	var fromFile string
	cmd := &cobra.Command{
		Use:   "write [path] [content]",
		Short: "Write a .json or .xml file inside an allowed folder",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := resolveContent(args, fromFile)
			if err != nil {
				return err
			}

			var result struct {
				Path string `json:"path"`
			}
			err = postJSON("/v1/files/text", map[string]string{
				"path":    args[0],
				"content": string(content),
			}, &result)
			if err != nil {
				return err
			}

			fmt.Printf("Wrote %s\n", result.Path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&fromFile, "file", "f", "", "Read content from a local file ('-' for stdin)")
	return cmd
}

func writeBinaryCmd() *cobra.Command {
	var fromFile string
	cmd := &cobra.Command{
		Use:   "write-binary [path]",
		Short: "Write a .xlsx file inside an allowed folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if fromFile == "" {
				return fmt.Errorf("--file is required for binary content")
			}
			content, err := readLocal(fromFile)
			if err != nil {
				return err
			}

			var result struct {
				Path string `json:"path"`
			}
			err = postJSON("/v1/files/binary", map[string]string{
				"path":    args[0],
				"content": base64.StdEncoding.EncodeToString(content),
			}, &result)
			if err != nil {
				return err
			}

			fmt.Printf("Wrote %s (%d bytes)\n", result.Path, len(content))
			return nil
		},
	}
	cmd.Flags().StringVarP(&fromFile, "file", "f", "", "Local file with the binary content ('-' for stdin)")
	return cmd
}

func readCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read [path]",
		Short: "Read a .json or .xml file from an allowed folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result struct {
				Content string `json:"content"`
			}
			if err := getJSON("/v1/files/text?path="+url.QueryEscape(args[0]), &result); err != nil {
				return err
			}
			fmt.Print(result.Content)
			return nil
		},
	}
}

func dirsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "dirs",
		Aliases: []string{"roots"},
		Short:   "List the allowed folders on the gateway host",
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs, err := fetchDirs()
			if err != nil {
				return err
			}
			if len(dirs) == 0 {
				fmt.Println("No allowed folders exist on the gateway host")
				return nil
			}
			for _, dir := range dirs {
				fmt.Println(dir)
			}
			return nil
		},
	}
}

func auditCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent gateway decisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			var records []FileOpRecord
			if err := getJSON(fmt.Sprintf("/v1/audit?limit=%d", limit), &records); err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tOPERATION\tRESULT\tBYTES\tPATH\tREASON")
			fmt.Fprintln(w, "----\t---------\t------\t-----\t----\t------")
			for _, r := range records {
				result := "allowed"
				if !r.Allowed {
					result = "denied"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
					r.At.Format(time.RFC3339), r.Operation, result, r.Bytes, r.Path, r.Reason)
			}
			w.Flush()
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum records to show")
	return cmd
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the gateway server and its allowed folders",
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs, _ := fetchDirs()
			status := health.Check(settings.serverURL, dirs, "")

			fmt.Printf("Server reachable:  %v\n", status.ServerReachable)
			for _, root := range status.Roots {
				fmt.Printf("Folder %s: exists=%v writable=%v\n", root.Path, root.Exists, root.Writable)
			}
			if status.Healthy {
				fmt.Println("Healthy")
				return nil
			}
			fmt.Println("Issues:")
			for _, issue := range status.Issues {
				fmt.Printf("  - %s\n", issue)
			}
			return fmt.Errorf("%d issue(s) found", len(status.Issues))
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show client version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("fsgate %s\n", Version)
		},
	}
}

// configureClientLogger sets up logging before the config file is read, so
// load failures themselves get logged. Logs go to stderr; stdout is reserved
// for command output.
func configureClientLogger() {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.DurationFieldUnit = time.Millisecond

	level := zerolog.InfoLevel
	if raw := strings.ToLower(strings.TrimSpace(os.Getenv("FSGATE_LOG_LEVEL"))); raw != "" {
		if parsed, err := zerolog.ParseLevel(raw); err == nil {
			level = parsed
		}
	}

	log.Logger = newClientLogger(os.Getenv("FSGATE_LOG_FORMAT")).Level(level)
	zerolog.SetGlobalLevel(level)
}

func applyClientLogging(cfg config.LoggingConfig) {
	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level))); err == nil {
		level = parsed
	}

	format := "console"
	if cfg.JSON {
		format = "json"
	}

	log.Logger = newClientLogger(format).Level(level)
	zerolog.SetGlobalLevel(level)
}

func newClientLogger(format string) zerolog.Logger {
	if strings.ToLower(strings.TrimSpace(format)) == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(writer).With().Timestamp().Logger()
}

func fetchDirs() ([]string, error) {
	var result struct {
		Dirs []string `json:"dirs"`
	}
	if err := getJSON("/v1/dirs", &result); err != nil {
		return nil, err
	}
	return result.Dirs, nil
}

func resolveContent(args []string, fromFile string) ([]byte, error) {
	if fromFile != "" {
		return readLocal(fromFile)
	}
	if len(args) == 2 {
		return []byte(args[1]), nil
	}
	return nil, fmt.Errorf("provide content as an argument or via --file")
}

func readLocal(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func postJSON(path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return doRequest(func() (*http.Response, error) {
		return client.Post(settings.serverURL+path, "application/json", bytes.NewReader(data))
	}, out)
}

func getJSON(path string, out any) error {
	return doRequest(func() (*http.Response, error) {
		return client.Get(settings.serverURL + path)
	}, out)
}

// doRequest issues the request with retries on transient failures (network
// errors, 5xx, 429) and decodes the JSON response.
func doRequest(issue func() (*http.Response, error), out any) error {
	var decoded bool

	err := settings.retry.do(func() error {
		resp, err := issue()
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if isRetryableStatus(resp) {
			io.Copy(io.Discard, resp.Body)
			return retryableStatusError{status: resp.StatusCode}
		}
		if resp.StatusCode != http.StatusOK {
			var apiErr struct {
				Error string `json:"error"`
			}
			if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
				return fmt.Errorf("%s", apiErr.Error)
			}
			return fmt.Errorf("server returned status %d", resp.StatusCode)
		}
		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return err
			}
		}
		decoded = true
		return nil
	}, isRetryableHTTP)
	if err != nil {
		return err
	}
	if out != nil && !decoded {
		return fmt.Errorf("empty response from server")
	}
	return nil
}
