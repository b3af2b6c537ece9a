package util

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/rKV/rpc/common"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables (e.g. RKV_LOG_LEVEL)
	EnvPrefix = "rkv"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupRPCClientFlags adds common RPC connection flags to a command
func SetupRPCClientFlags(cmd *cobra.Command) {
	defaults := common.DefaultClientConfig()

	key := "timeout"
	cmd.PersistentFlags().Int(key, defaults.TimeoutSecond, WrapString("The timeout in seconds for connecting and for every read and write (0 disables it)"))

	key = "endpoints"
	cmd.PersistentFlags().String(key, strings.Join(defaults.Endpoints, ","), WrapString("The address of the rKV server (host:port for tcp, a socket path for unix). Multiple endpoints can be specified as a comma-separated list, requests are spread round robin"))

	key = "retries"
	cmd.PersistentFlags().Int(key, defaults.RetryCount, WrapString("How many times to try a request before giving up"))

	key = "max-frame-size"
	cmd.PersistentFlags().Int(key, defaults.MaxFrameSize, WrapString("The largest response (in bytes) the client accepts"))
}

// InitConfig loads .env files and sets up viper to read environment variables.
// It is registered with cobra.OnInitialize.
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// ReadConfigFile reads the file given with --config, if any. Flags and
// environment variables take precedence over values from the file.
func ReadConfigFile() error {
	path := viper.GetString("config")
	if path == "" {
		return nil
	}

	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return nil
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// GetTransportType reads the configured transport
func GetTransportType() (common.TransportType, error) {
	switch t := common.TransportType(viper.GetString("transport")); t {
	case common.TransportTCP, common.TransportUnix:
		return t, nil
	default:
		return "", fmt.Errorf("invalid transport %s", t)
	}
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() (*common.ClientConfig, error) {
	t, err := GetTransportType()
	if err != nil {
		return nil, err
	}

	var endpoints []string
	for _, endpoint := range strings.Split(viper.GetString("endpoints"), ",") {
		if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
			endpoints = append(endpoints, endpoint)
		}
	}

	return &common.ClientConfig{
		Endpoints:     endpoints,
		Transport:     t,
		TimeoutSecond: viper.GetInt("timeout"),
		RetryCount:    viper.GetInt("retries"),
		MaxFrameSize:  viper.GetInt("max-frame-size"),
	}, nil
}
