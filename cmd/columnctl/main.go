// Command columnctl operates a columndb engine from the shell: put,
// get, delete, scan, stats, dump, and load, wiring together a
// badger-backed IndexDB, a local-filesystem Env, zap logging, and
// viper/cobra/pflag configuration.
package main

import (
	"fmt"
	"net/http"
	"os"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/latticefs/columndb"
	"github.com/latticefs/columndb/envfs"
	"github.com/latticefs/columndb/internal/badgerindex"
	"github.com/latticefs/columndb/internal/columnconfig"
)

var configFile string

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "columnctl",
		Short: "Operate a columndb blob-backed key-value engine",
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML/JSON config file")
	columnconfig.BindFlags(root.PersistentFlags())

	root.AddCommand(
		newOpenCmd(),
		newPutCmd(),
		newGetCmd(),
		newDeleteCmd(),
		newScanCmd(),
		newStatsCmd(),
		newDumpCmd(),
		newLoadCmd(),
	)
	return root
}

// openEngine wires a badger-backed IndexDB and a local-filesystem Env
// into a running ColumnDB, per the config resolved from fs.
func openEngine(fs *pflag.FlagSet) (*columndb.ColumnDB, func(), error) {
	cfg, err := columnconfig.Load(configFile, fs)
	if err != nil {
		return nil, nil, err
	}
	if cfg.DBPrefix == "" {
		return nil, nil, fmt.Errorf("--db is required")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, nil, err
	}

	env, err := envfs.Open(cfg.DBPrefix)
	if err != nil {
		return nil, nil, err
	}

	index, err := badgerindex.Open(cfg.DBPrefix + "/index")
	if err != nil {
		_ = env.Close()
		return nil, nil, err
	}

	var monitor columndb.Monitor
	var metricsServer *http.Server
	if cfg.Metrics {
		reg := prometheus.NewRegistry()
		monitor = columndb.NewPrometheusMonitor(reg)

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	db, err := columndb.Open(cfg.DBPrefix, columndb.Options{
		ServerID:        cfg.ServerID,
		MaxOpenFiles:    cfg.MaxOpenFiles,
		WriteBufferSize: cfg.BlobBufferMB << 20,
		Env:             env,
		Index:           index,
		Logger:          logger,
		Monitor:         monitor,
	})
	if err != nil {
		_ = index.Close()
		_ = env.Close()
		return nil, nil, err
	}

	cleanup := func() {
		_ = db.Close()
		_ = index.Close()
		_ = env.Close()
		if metricsServer != nil {
			_ = metricsServer.Close()
		}
		_ = logger.Sync()
	}
	return db, cleanup, nil
}

func newOpenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "open",
		Short: "Initialize or verify a database at --db, then close it",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cleanup, err := openEngine(cmd.Flags())
			if err != nil {
				return err
			}
			defer cleanup()
			fmt.Println("ok")
			return nil
		},
	}
	return cmd
}

func newPutCmd() *cobra.Command {
	var key, value string
	var sync bool
	cmd := &cobra.Command{
		Use:   "put",
		Short: "Write a key/value pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cleanup, err := openEngine(cmd.Flags())
			if err != nil {
				return err
			}
			defer cleanup()
			return db.Put(columndb.WriteOptions{Sync: sync}, []byte(key), []byte(value))
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "key to write")
	cmd.Flags().StringVar(&value, "value", "", "value to write")
	cmd.Flags().BoolVar(&sync, "sync", false, "flush the blob file before returning")
	return cmd
}

func newGetCmd() *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Read a key's value",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cleanup, err := openEngine(cmd.Flags())
			if err != nil {
				return err
			}
			defer cleanup()
			v, err := db.Get(columndb.ReadOptions{}, []byte(key))
			if err != nil {
				return err
			}
			fmt.Println(string(v))
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "key to read")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a key",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cleanup, err := openEngine(cmd.Flags())
			if err != nil {
				return err
			}
			defer cleanup()
			return db.Delete(columndb.WriteOptions{}, []byte(key))
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "key to delete")
	return cmd
}

// scanEntry is one row of JSON-mode scan output.
type scanEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func newScanCmd() *cobra.Command {
	var prefix string
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan keys in order, optionally starting at --prefix",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cleanup, err := openEngine(cmd.Flags())
			if err != nil {
				return err
			}
			defer cleanup()

			it := db.NewIterator(columndb.ReadOptions{})
			defer it.Close()

			var entries []scanEntry
			n := 0
			for it.Seek([]byte(prefix)); it.Valid(); it.Next() {
				if limit > 0 && n >= limit {
					break
				}
				if asJSON {
					entries = append(entries, scanEntry{Key: string(it.Key()), Value: string(it.Value())})
				} else {
					fmt.Printf("%s = %s\n", it.Key(), it.Value())
				}
				n++
			}
			if err := it.Status(); err != nil {
				return err
			}
			if asJSON {
				return printJSON(entries)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "only show keys at or after this prefix")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of keys to print (0 = unlimited)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as a JSON array instead of text lines")
	return cmd
}

// printJSON marshals v with goccy/go-json and writes it to stdout.
func printJSON(v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func newDumpCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Stream every key/value pair to a zstd-compressed file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return fmt.Errorf("--out is required")
			}
			db, cleanup, err := openEngine(cmd.Flags())
			if err != nil {
				return err
			}
			defer cleanup()

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()

			it := db.NewIterator(columndb.ReadOptions{})
			defer it.Close()
			return columndb.Dump(f, it)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "path to write the compressed dump to")
	return cmd
}

func newLoadCmd() *cobra.Command {
	var in string
	var sync bool
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Restore key/value pairs from a dump produced by columnctl dump",
		RunE: func(cmd *cobra.Command, args []string) error {
			if in == "" {
				return fmt.Errorf("--in is required")
			}
			db, cleanup, err := openEngine(cmd.Flags())
			if err != nil {
				return err
			}
			defer cleanup()

			f, err := os.Open(in)
			if err != nil {
				return err
			}
			defer f.Close()

			n := 0
			err = columndb.Load(f, func(key, value []byte) error {
				n++
				return db.Put(columndb.WriteOptions{Sync: sync}, key, value)
			})
			if err != nil {
				return err
			}
			fmt.Printf("loaded %d entries\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "path to a dump produced by columnctl dump")
	cmd.Flags().BoolVar(&sync, "sync", false, "flush each blob write while loading")
	return cmd
}

// statsOutput is the JSON-mode shape for "columnctl stats --json".
type statsOutput struct {
	LevelSizes      string `json:"level_sizes,omitempty"`
	ApproximateSize uint64 `json:"approximate_size_bytes"`
}

func newStatsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print IndexDB property and size stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cleanup, err := openEngine(cmd.Flags())
			if err != nil {
				return err
			}
			defer cleanup()

			levelSizes, _ := db.GetProperty("badger.level-sizes")
			sizes := db.ApproximateSizes([]columndb.Range{{}})

			if asJSON {
				return printJSON(statsOutput{LevelSizes: levelSizes, ApproximateSize: sizes[0]})
			}
			if levelSizes != "" {
				fmt.Println(levelSizes)
			}
			fmt.Printf("approximate size: %d bytes\n", sizes[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON instead of text lines")
	return cmd
}
