// mkfixture cuts a small, internally consistent reference snapshot out of a
// full one. It keeps the most frequent diagnoses with all their case
// history, every chapter mapping, the procedures those cases mention and the
// tariffs resolution could reach for them.
// Usage: go run ./cmd/mkfixture --in data/ref --out testdata/ref-small --diagnoses 50
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gyeh/cbgtariff/internal/model"
	"github.com/gyeh/cbgtariff/internal/refdata"
)

func main() {
	in := flag.String("in", "data/ref", "input snapshot directory")
	out := flag.String("out", "testdata/ref-small", "output snapshot directory")
	maxDiagnoses := flag.Int("diagnoses", 50, "number of diagnoses to keep")
	checkOnly := flag.Bool("check", false, "only print stats, don't write")
	flag.Parse()

	d, err := refdata.LoadParquet(*in, zerolog.Nop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "load snapshot: %v\n", err)
		os.Exit(1)
	}

	if *checkOnly {
		printStats(d)
		return
	}

	small := sample(d, *maxDiagnoses)
	if _, err := refdata.Build(small); err != nil {
		fmt.Fprintf(os.Stderr, "sampled snapshot is inconsistent: %v\n", err)
		os.Exit(1)
	}
	if err := refdata.WriteParquet(*out, small); err != nil {
		fmt.Fprintf(os.Stderr, "write snapshot: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", *out)
	printStats(small)
}

// sample keeps the n diagnoses with the most cases.
func sample(d refdata.Data, n int) refdata.Data {
	freq := make(map[string]int64)
	for _, c := range d.Cases {
		freq[c.Diagnosis] += c.Frequency
	}
	diagnoses := make([]string, 0, len(freq))
	for dx := range freq {
		diagnoses = append(diagnoses, dx)
	}
	sort.Slice(diagnoses, func(i, j int) bool {
		if freq[diagnoses[i]] != freq[diagnoses[j]] {
			return freq[diagnoses[i]] > freq[diagnoses[j]]
		}
		return diagnoses[i] < diagnoses[j]
	})
	if len(diagnoses) > n {
		diagnoses = diagnoses[:n]
	}
	keep := make(map[string]bool, len(diagnoses))
	for _, dx := range diagnoses {
		keep[dx] = true
	}

	out := refdata.Data{Version: d.Version + "+sample", Chapters: d.Chapters}
	codes := make(map[string]bool)
	procs := make(map[string]bool)
	for _, c := range d.Cases {
		if !keep[c.Diagnosis] {
			continue
		}
		out.Cases = append(out.Cases, c)
		codes[c.GroupingCode] = true
		if c.Signature != "" {
			for _, p := range strings.Split(c.Signature, "|") {
				procs[p] = true
			}
		}
	}

	// Rule-based codes for a kept diagnosis share its CMG.
	cmgs := make(map[string]bool)
	for _, m := range d.Chapters {
		for dx := range keep {
			if strings.HasPrefix(dx, m.Chapter) {
				cmgs[m.CMG] = true
			}
		}
	}

	for _, p := range d.Procedures {
		if procs[p.Code] {
			out.Procedures = append(out.Procedures, p)
		}
	}
	for _, t := range d.Tariffs {
		gc, err := model.ParseGroupingCode(t.GroupingCode)
		if err != nil {
			continue
		}
		if codes[t.GroupingCode] || cmgs[gc.CMG] {
			out.Tariffs = append(out.Tariffs, t)
		}
	}
	return out
}

func printStats(d refdata.Data) {
	diagnoses := make(map[string]bool)
	var inpatient, outpatient int
	for _, c := range d.Cases {
		diagnoses[c.Diagnosis] = true
		if c.Service == model.Inpatient {
			inpatient++
		} else {
			outpatient++
		}
	}
	var major, withSimilar int
	for _, p := range d.Procedures {
		if p.IsMajor {
			major++
		}
		if len(p.Similar) > 0 {
			withSimilar++
		}
	}
	var activeTariffs int
	for _, t := range d.Tariffs {
		if t.Active {
			activeTariffs++
		}
	}

	fmt.Printf("Version:     %s\n", d.Version)
	fmt.Printf("Cases:       %d rows, %d diagnoses (%d inpatient, %d outpatient)\n",
		len(d.Cases), len(diagnoses), inpatient, outpatient)
	fmt.Printf("Chapters:    %d mappings\n", len(d.Chapters))
	fmt.Printf("Procedures:  %d (%d major, %d with similar codes)\n", len(d.Procedures), major, withSimilar)
	fmt.Printf("Tariffs:     %d rows (%d active)\n", len(d.Tariffs), activeTariffs)
}
