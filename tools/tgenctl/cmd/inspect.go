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
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openconfig/tgenutils/internal/capturevalidation"
	"github.com/openconfig/tgenutils/internal/tgen"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Find a frame in the capture of a port",
	Long: `capture reads the frames captured on a port and prints the index of the
first frame holding every value. Values are matched at byte offsets, or at
HEADER:Field selectors on ixia:

	tgenctl capture --port port2 --offset 12 --value 81:00`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		h, err := c.PortHandle(viper.GetString("port"))
		if err != nil {
			return err
		}
		capture, err := c.Capture(cmd.Context(), h)
		if err != nil {
			return err
		}
		q := capturevalidation.CaptureQuery{
			Kind:      c.Kind(),
			Offsets:   viper.GetIntSlice("offset"),
			Values:    viper.GetStringSlice("value"),
			MaxFrames: viper.GetInt("max-frames"),
		}
		if headers := viper.GetStringSlice("header"); len(headers) > 0 {
			q.Headers = headers
		}
		idx, ok := capturevalidation.VerifyPacketCapture(&logReporter{}, capture, q)
		if !ok {
			return fmt.Errorf("no frame captured on %s matches", h)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "frame %d matches\n", idx)
		return nil
	},
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Ping from an emulated device",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		h, err := c.PortHandle(viper.GetString("ping-port"))
		if err != nil {
			return err
		}
		count := viper.GetInt("count")
		if !tgen.VerifyPing(cmd.Context(), &logReporter{}, c, h, viper.GetString("device"), viper.GetString("dst"), count, count) {
			return fmt.Errorf("ping to %s failed", viper.GetString("dst"))
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the normalized counters of a port",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		h, err := c.PortHandle(viper.GetString("stats-port"))
		if err != nil {
			return err
		}
		ts, err := tgen.GetTrafficStats(cmd.Context(), &logReporter{}, c, tgen.TrafficStatsQuery{
			PortHandle:   h,
			Mode:         viper.GetString("stats-mode"),
			StreamHandle: viper.GetString("stream"),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "tx: %+v\nrx: %+v\n", ts.Tx, ts.Rx)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(captureCmd, pingCmd, statsCmd)

	captureCmd.Flags().String("port", "", "captured port")
	captureCmd.Flags().IntSlice("offset", nil, "byte offsets of the values")
	captureCmd.Flags().StringSlice("value", nil, "values to find")
	captureCmd.Flags().StringSlice("header", nil, "HEADER:Field selectors of the values")
	captureCmd.Flags().Int("max-frames", 0, "frames inspected on stc and ixia")
	captureCmd.MarkFlagRequired("port")
	bindFlags(captureCmd.Flags())

	pingCmd.Flags().String("ping-port", "", "port of the device")
	pingCmd.Flags().String("device", "", "device handle")
	pingCmd.Flags().String("dst", "", "destination address")
	pingCmd.Flags().Int("count", 1, "pings sent and expected back")
	pingCmd.MarkFlagRequired("device")
	bindFlags(pingCmd.Flags())

	statsCmd.Flags().String("stats-port", "", "port to read")
	statsCmd.Flags().String("stats-mode", "aggregate", "aggregate or streams")
	statsCmd.Flags().String("stream", "", "stream handle of the streams mode")
	bindFlags(statsCmd.Flags())
}
