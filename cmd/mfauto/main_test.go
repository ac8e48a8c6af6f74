package main

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mfauto/mfauto/studymod"
)

func TestParamFlag(t *testing.T) {
	var p paramFlag
	if err := p.Set("Melt temperature=230"); err != nil {
		t.Fatal(err)
	}
	if err := p.Set("Packing profile=0 80; 10 60"); err != nil {
		t.Fatal(err)
	}

	if p[0].name != "Melt temperature" {
		t.Fatal("wrong name: ", p[0].name)
	}
	if diff := cmp.Diff(studymod.Values{{0, 80}, {10, 60}}, p[1].values); diff != "" {
		t.Fatal("values mismatch: ", diff)
	}

	for _, bad := range []string{"230", "=1", "T=", "T=abc"} {
		if err := p.Set(bad); err == nil {
			t.Error("expected error for ", bad)
		}
	}
}

func TestResultFlag(t *testing.T) {
	var r resultFlag
	if err := r.Set("1610:Temperature"); err != nil {
		t.Fatal(err)
	}
	if err := r.Set("4000"); err != nil {
		t.Fatal(err)
	}

	if r[0].ID != 1610 || r[0].Name != "Temperature" || r[1].ID != 4000 || r[1].Name != "" {
		t.Fatal("wrong results: ", r)
	}

	if err := r.Set("x:T"); err == nil {
		t.Fatal("expected error for invalid id")
	}
}
