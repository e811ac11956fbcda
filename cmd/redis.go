package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"C90FM/config"
	"C90FM/storage"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Check the redis connection.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		fmt.Printf("redis target: %s:%s db=%d\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)

		store, err := storage.NewRedisStore(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "connection failed: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		key := "healthcheck"
		if err := store.Set(ctx, key, []byte(time.Now().Format(time.RFC3339))); err != nil {
			fmt.Fprintf(os.Stderr, "write failed: %v\n", err)
			os.Exit(1)
		}
		if _, err := store.Get(ctx, key); err != nil {
			fmt.Fprintf(os.Stderr, "read failed: %v\n", err)
			os.Exit(1)
		}
		if err := store.Delete(ctx, key); err != nil {
			fmt.Fprintf(os.Stderr, "cleanup failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("redis connection ok")
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
