package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "override config path (optional)")
	envFiles := flag.String("env", ".env", "comma-separated dotenv files to load (optional)")
	apiURL := flag.String("api", "", "backend base URL, e.g. http://lab-pc:3001/api/ (optional)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{ConfigPath: *configPath, APIURL: *apiURL}
	for _, f := range strings.Split(*envFiles, ",") {
		if f = strings.TrimSpace(f); f != "" {
			opts.EnvFiles = append(opts.EnvFiles, f)
		}
	}

	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "olilab: %v\n", err)
		return 1
	}
	return 0
}
