// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"github.com/luxfi/govern"
	"github.com/luxfi/govern/config"
)

const (
	HTTPAddrKey = "http-addr"
	ConfigKey   = "config"
)

func main() {
	cmd := &cobra.Command{
		Use:   "govern",
		Short: "Runs a treasury governance node",
		RunE:  runFunc,
	}
	flags := cmd.Flags()
	flags.String(HTTPAddrKey, ":9650", "Address the HTTP server listens on")
	flags.String(ConfigKey, "", "Path to the JSON config file")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runFunc(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	httpAddr, err := flags.GetString(HTTPAddrKey)
	if err != nil {
		return err
	}
	configPath, err := flags.GetString(ConfigKey)
	if err != nil {
		return err
	}

	var configBytes []byte
	if configPath != "" {
		configBytes, err = os.ReadFile(configPath)
		if err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
	}
	cfg, err := config.GetConfig(configBytes)
	if err != nil {
		return err
	}

	logger := log.NewLogger("govern")
	node, err := govern.New(cfg, memdb.New(), logger)
	if err != nil {
		return err
	}

	handlers, err := node.Handlers()
	if err != nil {
		return err
	}

	router := mux.NewRouter()
	for path, handler := range handlers {
		router.Handle("/ext/govern"+path, handler)
	}
	router.Handle("/ext/metrics", promhttp.HandlerFor(
		node.MetricsGatherer(),
		promhttp.HandlerOpts{},
	))

	handler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowCredentials: true,
	}).Handler(router)

	logger.Info("server listening",
		log.String("addr", httpAddr),
	)
	return http.ListenAndServe(httpAddr, handler)
}
