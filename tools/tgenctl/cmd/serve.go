// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openconfig/tgenutils/internal/tgenbackend/softtgen"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a software traffic generator over HLTAPI",
	RunE: func(cmd *cobra.Command, args []string) error {
		var lab Lab
		if err := decodeFile(viper.GetString("lab"), &lab); err != nil {
			return err
		}
		sim, err := lab.Build()
		if err != nil {
			return err
		}
		return serve(viper.GetString("listen"), softtgen.NewHandler(sim))
	},
}

func serve(addr string, h http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		glog.Infof("Serving HLTAPI on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errc:
		return err
	case <-quit:
	}
	glog.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("lab", "", "YAML lab description")
	serveCmd.Flags().String("listen", ":8080", "address to serve on")
	serveCmd.MarkFlagRequired("lab")
	bindFlags(serveCmd.Flags())
}
