// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
)

type testParams struct {
	JSONOutput
	Mode    string        `flag:"mode,m" desc:"target mode" default:"mini"`
	Timeout time.Duration `flag:"timeout" desc:"call timeout" default:"5s"`
	Retries int           `flag:"retries" desc:"retry count" default:"2"`
	Verbose bool          `flag:"verbose,v" desc:"verbose output"`
	ignored string
}

func TestFlagsFromParams(t *testing.T) {
	var params testParams
	flagSet := FlagsFromParams("test", &params)

	if params.Mode != "mini" || params.Timeout != 5*time.Second || params.Retries != 2 {
		t.Errorf("defaults not applied: %+v", params)
	}

	if err := flagSet.Parse([]string{"-m", "full", "--timeout", "1m", "--json", "-v", "--retries=0"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if params.Mode != "full" || params.Timeout != time.Minute || params.Retries != 0 ||
		!params.Verbose || !params.OutputJSON {
		t.Errorf("parsed params = %+v", params)
	}
	if params.ignored != "" {
		t.Error("untagged field was bound")
	}
}

func TestBindFlagsRejectsInvalidParams(t *testing.T) {
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(testParams{}, flagSet); err == nil {
		t.Error("BindFlags accepted a non-pointer")
	}

	var unsupported struct {
		Ratio float32 `flag:"ratio"`
	}
	if err := BindFlags(&unsupported, flagSet); err == nil {
		t.Error("BindFlags accepted an unsupported field type")
	}

	var badDefault struct {
		Count int `flag:"count" default:"many"`
	}
	if err := BindFlags(&badDefault, flagSet); err == nil {
		t.Error("BindFlags accepted an unparseable default")
	}
}
