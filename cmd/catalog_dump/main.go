// Command catalog_dump downloads the skin image catalog and writes it to a
// local file usable as the offline fallback.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"skinwatch/internal/config"
	"skinwatch/internal/httpx"
	"skinwatch/internal/imagecatalog"
	"skinwatch/internal/logger"
)

func main() {
	var (
		cfgPath    string
		outPath    string
		url        string
		timeoutSec int
	)
	flag.StringVar(&cfgPath, "config", "", "path to config.json (optional)")
	flag.StringVar(&outPath, "out", "", "output file (default catalog.file from config, else skins.json)")
	flag.StringVar(&url, "url", "", "catalog URL (default catalog.endpoint from config)")
	flag.IntVar(&timeoutSec, "timeout", 60, "download timeout seconds")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	log := logger.NewWithWriter(os.Stderr, cfg.Log.Level)
	if err != nil {
		log.Error("config", "err", err)
		os.Exit(1)
	}
	if url == "" {
		url = cfg.Catalog.Endpoint
	}
	if outPath == "" {
		outPath = cfg.Catalog.File
	}
	if outPath == "" {
		outPath = "skins.json"
	}

	timeout := time.Duration(timeoutSec) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	loader := imagecatalog.HTTPLoader{URL: url, Client: httpx.New(timeout)}
	c, err := loader.Load(ctx)
	if err != nil {
		log.Error("download catalog", "url", url, "err", err)
		os.Exit(1)
	}
	if c.Len() == 0 {
		log.Error("catalog is empty", "url", url)
		os.Exit(1)
	}
	if err := imagecatalog.WriteFile(outPath, c); err != nil {
		log.Error("write catalog", "out", outPath, "err", err)
		os.Exit(1)
	}
	log.Info("catalog written", "out", outPath, "entries", c.Len())
}
