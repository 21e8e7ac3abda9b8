/*
Copyright © 2024 Harsh Varagiya

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pailfrog",
	Short: "find and loot publicly listable cloud storage buckets",
	Long: `check whether the storage bucket of a domain is served from a cloud
provider's published IP ranges and, when the bucket can be listed anonymously,
download every file it lets us read.
Supported providers: aws (S3), google (Cloud Storage), digitalocean (Spaces).`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := applyConfig(cmd.Flags()); err != nil {
			return err
		}
		UpdateLogLevel()
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.pailfrog.yaml)")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", defaultCacheDir(), "directory holding downloaded IP range documents")
	rootCmd.PersistentFlags().DurationVar(&rangesMaxAge, "ranges-max-age", DEFAULT_RANGES_MAX_AGE, "download IP ranges again once the cached copy is older than this")
	rootCmd.PersistentFlags().DurationVar(&httpTimeout, "timeout", DEFAULT_HTTP_TIMEOUT, "timeout for every HTTP request")
	rootCmd.PersistentFlags().BoolVar(&insecureTLS, "insecure", false, "skip TLS certificate validation")

	// debugging
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "v", false, "enable debug logs")
	rootCmd.PersistentFlags().BoolVar(&traceFlag, "trace", false, "enable trace logs")
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".pailfrog"
	}
	return filepath.Join(dir, "pailfrog")
}

// initConfig reads in .env, the config file and PAILFROG_ environment variables.
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithFields(logrus.Fields{"state": "config", "errmsg": err.Error()}).Warn("error loading .env file")
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".pailfrog")
	}

	viper.SetEnvPrefix("PAILFROG")
	viper.SetEnvKeyReplacer(newEnvKeyReplacer())
	viper.AutomaticEnv()
	// credentials commonly live in .env under their usual names
	viper.BindEnv("redis-host", "PAILFROG_REDIS_HOST", "REDIS_HOST")
	viper.BindEnv("postgres-dsn", "PAILFROG_POSTGRES_DSN", "POSTGRES_DSN")
	viper.BindEnv("elastic-host", "PAILFROG_ELASTIC_HOST", "ELASTIC_HOST")
	viper.BindEnv("elastic-username", "PAILFROG_ELASTIC_USERNAME", "ELASTIC_USERNAME")
	viper.BindEnv("elastic-password", "PAILFROG_ELASTIC_PASSWORD", "ELASTIC_PASSWORD")
	viper.BindEnv("minio-endpoint", "PAILFROG_MINIO_ENDPOINT", "MINIO_ENDPOINT")
	viper.BindEnv("minio-access-key", "PAILFROG_MINIO_ACCESS_KEY", "MINIO_ACCESS_KEY")
	viper.BindEnv("minio-secret-key", "PAILFROG_MINIO_SECRET_KEY", "MINIO_SECRET_KEY")

	if err := viper.ReadInConfig(); err == nil {
		log.WithFields(logrus.Fields{"state": "config"}).Debugf("using config file: %s", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		log.WithFields(logrus.Fields{"state": "config", "errmsg": err.Error()}).Fatal("error reading config file")
	}
}

func newEnvKeyReplacer() *strings.Replacer {
	return strings.NewReplacer("-", "_", ".", "_")
}

// applyConfig fills every flag the user did not set on the command line
// from the config file or environment.
func applyConfig(flags *pflag.FlagSet) error {
	var errs []error
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Changed || !viper.IsSet(f.Name) {
			return
		}
		if sliceValue, ok := f.Value.(pflag.SliceValue); ok {
			if err := sliceValue.Replace(viper.GetStringSlice(f.Name)); err != nil {
				errs = append(errs, err)
			}
			return
		}
		if err := flags.Set(f.Name, viper.GetString(f.Name)); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}
