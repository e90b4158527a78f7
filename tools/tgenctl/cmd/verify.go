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
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/openconfig/tgenutils/internal/tgenbackend/hltapi"
	"github.com/openconfig/tgenutils/internal/trafficvalidation"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Run the traffic of a plan and verify it",
	RunE: func(cmd *cobra.Command, args []string) error {
		var plan Plan
		if err := decodeFile(viper.GetString("plan"), &plan); err != nil {
			return err
		}
		ctx := cmd.Context()
		c, err := connect(ctx)
		if err != nil {
			return err
		}
		r := &logReporter{}
		res, err := plan.Execute(ctx, r, c, policyOverrides(plan.TrafficPolicy()))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), res)
		if !res.Passed || r.Failed() {
			return fmt.Errorf("traffic verification %s failed: %s", res.ID, res.LastMessage())
		}
		return nil
	},
}

func connect(ctx context.Context) (*hltapi.Client, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return hltapi.Connect(ctx, viper.GetString("server"), nil)
}

// addPolicyFlags adds the flags that override the policy of a plan.
func addPolicyFlags(fs *pflag.FlagSet) {
	fs.String("mode", "", "verification mode: aggregate, streamblock, filter or custom_filter")
	fs.String("comparison", "", "compared counter: packet_count, packet_rate, drop_count, drop_rate or oversize_count")
	fs.Int("retry", 0, "retries of a mismatching measurement")
	fs.Float64("tolerance-factor", 0, "multiplier of the 5% tolerance")
	fs.Float64("delay-factor", 0, "multiplier of the 5 second settle delay")
	fs.Bool("scale-mode", false, "read scaled statistics")
	fs.Duration("capture-wait", 0, "capture duration of the custom_filter mode")
}

// policyOverrides applies the policy flags, environment variables and
// config keys that were set on p.
func policyOverrides(p trafficvalidation.Policy) trafficvalidation.Policy {
	if viper.IsSet("mode") {
		p.Mode = viper.GetString("mode")
	}
	if viper.IsSet("comparison") {
		p.Comparison = viper.GetString("comparison")
	}
	if viper.IsSet("retry") {
		p.Retry = viper.GetInt("retry")
	}
	if viper.IsSet("tolerance-factor") {
		p.ToleranceFactor = viper.GetFloat64("tolerance-factor")
	}
	if viper.IsSet("delay-factor") {
		p.DelayFactor = viper.GetFloat64("delay-factor")
	}
	if viper.IsSet("scale-mode") {
		p.ScaleMode = viper.GetBool("scale-mode")
	}
	if viper.IsSet("capture-wait") {
		p.CaptureWait = viper.GetDuration("capture-wait")
	}
	return p
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().String("plan", "", "YAML traffic plan")
	verifyCmd.MarkFlagRequired("plan")
	addPolicyFlags(verifyCmd.Flags())
	bindFlags(verifyCmd.Flags())
}
