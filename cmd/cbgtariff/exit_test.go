package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/gyeh/cbgtariff/internal/adjudicate"
	"github.com/gyeh/cbgtariff/internal/config"
	"github.com/gyeh/cbgtariff/internal/exitcode"
	"github.com/gyeh/cbgtariff/internal/ingest"
	"github.com/gyeh/cbgtariff/internal/model"
	"github.com/gyeh/cbgtariff/internal/refdata"
	"github.com/gyeh/cbgtariff/internal/refdata/refdatatest"
	"github.com/gyeh/cbgtariff/internal/worker"
)

func useTestGlobals(t *testing.T) {
	t.Helper()
	prevCfg, prevLog, prevReq, prevOnly := cfg, log, resolveReq, resolveOnly
	cfg = config.Default()
	log = zerolog.Nop()
	t.Cleanup(func() {
		cfg, log, resolveReq, resolveOnly = prevCfg, prevLog, prevReq, prevOnly
	})
}

func TestResolveClaim_ExitCodes(t *testing.T) {
	priced := adjudicate.Request{
		PrimaryDiagnosis: "I21.0",
		Procedures:       []string{"36.06", "36.07"},
		ServiceContext:   "inpatient",
		RegionalZone:     "2",
		HospitalClass:    "B",
		HospitalType:     "Pemerintah",
	}
	unpriced := priced
	unpriced.RegionalZone = "1"
	unresolved := priced
	unresolved.PrimaryDiagnosis = "Z99.9"
	unresolved.Procedures = nil
	blank := priced
	blank.PrimaryDiagnosis = " "

	tests := []struct {
		name        string
		repo        refdata.Repository
		req         adjudicate.Request
		resolveOnly bool
		want        int
		wantOutput  string
	}{
		{"resolved", nil, priced, false, exitcode.Success, `"status": "resolved"`},
		{"unpriced", nil, unpriced, false, exitcode.PartialSuccess, `"status": "resolved_unpriced"`},
		{"unresolved", nil, unresolved, false, exitcode.Unresolved, `"status": "unresolved"`},
		{"resolve only unresolved", nil, unresolved, true, exitcode.Unresolved, `"resolved": false`},
		{"resolve only resolved", nil, priced, true, exitcode.Success, `"resolved": true`},
		{"input error", nil, blank, false, exitcode.ValidationError, ""},
		{"reference failure", refdatatest.Broken{}, priced, false, exitcode.LoadError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useTestGlobals(t)
			resolveReq, resolveOnly = tt.req, tt.resolveOnly
			repo := tt.repo
			if repo == nil {
				repo = refdatatest.Snapshot(t)
			}

			var out bytes.Buffer
			code, err := resolveClaim(context.Background(), &reference{repo: repo}, &out)
			if err != nil {
				t.Fatalf("resolveClaim: %v", err)
			}
			if code != tt.want {
				t.Errorf("exit code = %d, want %d", code, tt.want)
			}
			if tt.wantOutput != "" && !strings.Contains(out.String(), tt.wantOutput) {
				t.Errorf("output missing %s:\n%s", tt.wantOutput, out.String())
			}
		})
	}
}

func TestAdjudicateAll_ExitCodes(t *testing.T) {
	const input = `{"claim_id":"c1","primary_diagnosis":"I21.0","procedures":["36.06","36.07"],"service_context":"inpatient","regional_zone":"2","hospital_class":"B","hospital_type":"Pemerintah"}
{"claim_id":"c2","primary_diagnosis":"A09.0","service_context":"outpatient","regional_zone":"1","hospital_class":"B","hospital_type":"Pemerintah"}
`
	tests := []struct {
		name  string
		repo  refdata.Repository
		input string
		want  int
		lines int
	}{
		{"all adjudicated", nil, input, exitcode.Success, 2},
		{"bad line", nil, input + "{not json\n", exitcode.PartialSuccess, 3},
		{"reference failure", refdatatest.Broken{}, input, exitcode.LoadError, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useTestGlobals(t)
			cfg.NoProgress = true
			cfg.Workers = 2
			cfg.OutPath = filepath.Join(t.TempDir(), "results.jsonl")
			repo := tt.repo
			if repo == nil {
				repo = refdatatest.Snapshot(t)
			}

			claims, err := worker.ReadClaims(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("ReadClaims: %v", err)
			}
			code, err := adjudicateAll(context.Background(), &reference{repo: repo}, claims)
			if err != nil {
				t.Fatalf("adjudicateAll: %v", err)
			}
			if code != tt.want {
				t.Errorf("exit code = %d, want %d", code, tt.want)
			}
			if tt.lines == 0 {
				return
			}
			f, err := os.Open(cfg.OutPath)
			if err != nil {
				t.Fatalf("open results: %v", err)
			}
			defer f.Close()
			n := 0
			for sc := bufio.NewScanner(f); sc.Scan(); {
				n++
			}
			if n != tt.lines {
				t.Errorf("wrote %d result lines, want %d", n, tt.lines)
			}
		})
	}
}

func TestIngestExitCode(t *testing.T) {
	clean := []model.LoadSummary{{Table: "tariffs", RowsLoaded: 10}}
	rejected := []model.LoadSummary{{Table: "tariffs", RowsLoaded: 8, RowsRejected: 2}}
	tests := []struct {
		name      string
		summaries []model.LoadSummary
		err       error
		want      int
	}{
		{"clean", clean, nil, exitcode.Success},
		{"rejections", rejected, nil, exitcode.PartialSuccess},
		{"preflight", nil, &ingest.PipelineError{Phase: "preflight", Table: "tariffs", Err: errors.New("schema")}, exitcode.ValidationError},
		{"stage", clean, &ingest.PipelineError{Phase: "stage", Table: "tariffs", Err: errors.New("copy")}, exitcode.CopyError},
		{"finalize", clean, &ingest.PipelineError{Phase: "finalize", Table: "tariffs", Err: errors.New("commit")}, exitcode.LoadError},
		{"other", nil, errors.New("boom"), exitcode.LoadError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ingestExitCode(tt.summaries, tt.err); got != tt.want {
				t.Errorf("ingestExitCode = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestReference_CloseWithoutPool(t *testing.T) {
	(&reference{repo: refdatatest.Snapshot(t)}).Close()
}
