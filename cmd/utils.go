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
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/valyala/fasthttp"

	"github.com/HarshVaragiya/pailfrog/internal/bucket"
	"github.com/HarshVaragiya/pailfrog/internal/enrich"
	"github.com/HarshVaragiya/pailfrog/internal/export"
	"github.com/HarshVaragiya/pailfrog/internal/investigate"
	"github.com/HarshVaragiya/pailfrog/internal/ranges"
	"github.com/HarshVaragiya/pailfrog/internal/resolve"
	"github.com/HarshVaragiya/pailfrog/internal/web"
)

func UpdateLogLevel() {
	if traceFlag {
		log.SetLevel(logrus.TraceLevel)
		log.WithFields(logrus.Fields{"state": "main"}).Info("enabled trace logging")
	} else if debugFlag {
		log.SetLevel(logrus.DebugLevel)
		log.WithFields(logrus.Fields{"state": "main"}).Info("enabled debug logging")
	}
}

// NewSignalContext is cancelled on the first SIGINT/SIGTERM. A second signal
// exits immediately.
func NewSignalContext() (context.Context, context.CancelFunc) {
	ctx, cancelFunc := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-signals
		log.WithFields(logrus.Fields{"state": "main"}).Infof("received %v ... cancelling context.", s.String())
		cancelFunc()
		log.WithFields(logrus.Fields{"state": "main"}).Infof("waiting for threads to finish ...")
		s = <-signals
		log.WithFields(logrus.Fields{"state": "main"}).Infof("received %v ... forcing exit", s.String())
		os.Exit(-1)
	}()
	return ctx, cancelFunc
}

func newHTTPClient() *fasthttp.Client {
	return web.NewClient(insecureTLS)
}

func newRangeManager(client web.Client) *ranges.Manager {
	manager := ranges.NewManager(ranges.NewCache(cacheDir), client)
	manager.MaxAge = rangesMaxAge
	manager.Timeout = httpTimeout
	return manager
}

func newResolver() resolve.Resolver {
	if nameserver != "" {
		log.WithFields(logrus.Fields{"state": "main"}).Debugf("resolving through nameserver %s", nameserver)
		return resolve.NewDNSResolver(nameserver, httpTimeout)
	}
	return resolve.SystemResolver{}
}

func addBucketFlags(flags *pflag.FlagSet) {
	flags.StringVar(&bucketProvider, "provider", "aws", "bucket provider (aws, google, digitalocean)")
	flags.StringVar(&bucketRegion, "bucket-region", "", "region used in the bucket host name (digitalocean only, default nyc3)")
	flags.BoolVar(&updateRanges, "update-ranges", false, "download IP ranges even when the cached copy is fresh")
	flags.StringVarP(&regionRegexString, "region-regex", "r", "", "only match ranges of regions matching this regex")
	flags.StringVar(&serviceRegex, "service-regex", "", "only match ranges of services matching this regex (aws default ^S3$)")
	flags.StringVar(&nameserver, "nameserver", "", "resolve the bucket host through this nameserver instead of the system resolver")
	flags.BoolVar(&useHTTPS, "https", false, "talk to the bucket over https")
	flags.StringVarP(&outputDir, "output", "o", DEFAULT_OUTPUT_DIR, "directory to save readable files to")
	flags.BoolVar(&noDownload, "no-download", false, "only request files, do not save them")
	flags.StringSliceVar(&includeGlobs, "include", nil, "only request keys matching one of these globs")
	flags.StringSliceVar(&excludeGlobs, "exclude", nil, "never request keys matching one of these globs")
	flags.Int64Var(&maxObjectSize, "max-size", 0, "skip objects listed as larger than this many bytes (0 = no limit)")
	flags.IntVar(&maxListPages, "max-pages", 0, "stop listing after this many pages (0 = no limit)")
	flags.IntVarP(&threadCount, "threads", "t", 8, "number of parallel downloads")
	flags.Float64Var(&requestRate, "rate", 0, "maximum object requests per second (0 = no limit)")
	flags.BoolVar(&showProgress, "progress", false, "show a progress bar while harvesting")

	flags.BoolVar(&grabJarm, "jarm", false, "grab the JARM fingerprint of the bucket endpoint")
	flags.IntVar(&jarmRetryCount, "jarm-retry-count", 3, "retry attempts for JARM fingerprint")
	flags.StringVar(&geoipCountryDB, "geoip-db", "", "MaxMind GeoLite2 country database")
	flags.StringVar(&geoipASNDB, "geoip-asn-db", "", "MaxMind GeoLite2 ASN database")

	flags.StringVar(&mirrorBucket, "mirror-bucket", "", "also upload saved files to this MinIO/S3 bucket")
	flags.StringVar(&minioEndpoint, "minio-endpoint", "", "MinIO endpoint for --mirror-bucket")
	flags.StringVar(&minioAccessKey, "minio-access-key", "", "MinIO access key")
	flags.StringVar(&minioSecretKey, "minio-secret-key", "", "MinIO secret key")
	flags.BoolVar(&minioSecure, "minio-secure", false, "use TLS for the MinIO endpoint")
}

// buildInvestigator wires the checker from the bucket flags. The returned
// func releases what it opened.
func buildInvestigator() (*investigate.Investigator, func()) {
	client := newHTTPClient()
	options := bucket.Options{
		OutputDir: outputDir,
		Download:  !noDownload,
		Include:   includeGlobs,
		Exclude:   excludeGlobs,
		MaxSize:   maxObjectSize,
		Threads:   threadCount,
		Rate:      requestRate,
		Progress:  showProgress,
	}
	if mirrorBucket != "" {
		mirror, err := export.NewMinioMirror(minioEndpoint, minioAccessKey, minioSecretKey, mirrorBucket, minioSecure)
		if err != nil {
			log.WithFields(logrus.Fields{"state": "main", "errmsg": err.Error()}).Fatal("error configuring mirror bucket")
		}
		options.Mirror = mirror
	}
	inv := &investigate.Investigator{
		Config: investigate.Config{
			Provider:     bucketProvider,
			Region:       bucketRegion,
			HTTPS:        useHTTPS,
			UpdateRanges: updateRanges,
			RegionRegex:  regionRegexString,
			ServiceRegex: serviceRegex,
			JARM:         grabJarm,
			JARMRetries:  jarmRetryCount,
		},
		Ranges:    newRangeManager(client),
		Resolver:  newResolver(),
		Buckets:   bucket.NewClient(client, httpTimeout, maxListPages),
		Harvester: bucket.NewHarvester(client, httpTimeout, options),
	}
	cleanup := func() {}
	if geoipCountryDB != "" || geoipASNDB != "" {
		geo, err := enrich.OpenGeoIP(geoipCountryDB, geoipASNDB)
		if err != nil {
			log.WithFields(logrus.Fields{"state": "main", "errmsg": err.Error()}).Fatal("error opening geoip database")
		}
		inv.GeoIP = geo
		cleanup = func() { geo.Close() }
	}
	return inv, cleanup
}
