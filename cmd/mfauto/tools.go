package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mfauto/mfauto/meshio"
	"github.com/mfauto/mfauto/moldflow"
	"github.com/mfauto/mfauto/runstudy"
	"github.com/mfauto/mfauto/studymod"
	"github.com/mfauto/mfauto/studyrlt"
)

// installFlags are the options of the commands that run Moldflow tools
type installFlags struct {
	moldflow *string
	units    *string
	quiet    *bool
}

func addInstallFlags(flags *flag.FlagSet) installFlags {
	return installFlags{
		moldflow: flags.String("moldflow", os.Getenv("MFAUTO_MOLDFLOW"),
			"Moldflow installation directory (env MFAUTO_MOLDFLOW)"),
		units: flags.String("units", moldflow.UnitsMetric,
			"unit system passed to the tools (Metric, English, SI), empty keeps the study units"),
		quiet: flags.Bool("quiet", false, "do not print progress"),
	}
}

func (f installFlags) install() (*moldflow.Install, error) {
	return moldflow.NewInstall(*f.moldflow, moldflow.Options{
		Units: *f.units,
		Quiet: *f.quiet,
	})
}

func runCheck(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("check", flag.ExitOnError)
	fi := addInstallFlags(flags)

	if err := flags.Parse(args); err != nil {
		return err
	}

	inst, err := fi.install()
	if err != nil {
		return err
	}

	checks := []struct {
		name  string
		check func(context.Context) error
	}{
		{moldflow.ExeStudyMod, func(ctx context.Context) error { return studymod.Check(ctx, inst) }},
		{moldflow.ExeRunStudy, runstudy.NewRunner(inst).Check},
		{moldflow.ExeStudyRLT, studyrlt.NewExporter(inst, "", "", "").Check},
	}

	failed := false
	for _, c := range checks {
		if err := c.check(ctx); err != nil {
			fmt.Printf("%-14v FAILED: %v\n", c.name, err)
			failed = true
			continue
		}
		fmt.Printf("%-14v OK\n", c.name)
	}

	out, err := inst.Output(ctx, inst.StudyRLT)
	if err == nil {
		if v, ok := moldflow.ParseVersion(out); ok {
			fmt.Println("Moldflow version:", v)
		}
	}

	if failed {
		return fmt.Errorf("some tools do not work")
	}

	return nil
}

// paramFlag collects -param name=value options. Value lines are
// separated by ';', vector components by spaces.
type paramFlag []paramValue

type paramValue struct {
	name   string
	values studymod.Values
}

func (p *paramFlag) String() string {
	var s []string
	for _, v := range *p {
		s = append(s, v.name)
	}
	return strings.Join(s, ",")
}

func (p *paramFlag) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return fmt.Errorf("parameter must be name=value: %v", s)
	}

	var values studymod.Values
	for _, line := range strings.Split(value, ";") {
		var v studymod.Value
		for _, f := range strings.Fields(line) {
			x, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %v: %v", name, f)
			}
			v = append(v, x)
		}
		if len(v) > 0 {
			values = append(values, v)
		}
	}

	if len(values) == 0 {
		return fmt.Errorf("no value for %v", name)
	}

	*p = append(*p, paramValue{name: strings.TrimSpace(name), values: values})
	return nil
}

func runModify(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("modify", flag.ExitOnError)
	fi := addInstallFlags(flags)
	flagTCodes := flags.String("tcodes", os.Getenv("MFAUTO_TCODES"), "TCode database (env MFAUTO_TCODES)")
	flagMaterials := flags.String("materials", os.Getenv("MFAUTO_MATERIALS"), "material database (env MFAUTO_MATERIALS)")
	flagMaterial := flags.String("material", "", "material to inject")
	flagProject := flags.String("project", "", "project file (.mpi) to add the output study to")
	flagExportModifier := flags.Bool("exportModifier", false, "keep the modifier next to the output study")
	flagPrint := flags.Bool("print", false, "print the modifier instead of applying it")
	var params paramFlag
	flags.Var(&params, "param", "process parameter, name=value, repeatable")
	flags.Usage = func() {
		fmt.Println("usage: mfauto modify [OPTION]... STUDY OUTPUT")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		return err
	}

	if flags.NArg() != 2 {
		flags.Usage()
		return fmt.Errorf("input and output study required")
	}

	inst, err := fi.install()
	if err != nil {
		return err
	}

	db, err := studymod.LoadDatabase(*flagTCodes, *flagMaterials)
	if err != nil {
		return err
	}

	m := studymod.NewModifier(inst, db, flags.Arg(0), flags.Arg(1))

	if *flagMaterial != "" {
		if err := m.DefineMaterial(*flagMaterial); err != nil {
			return err
		}
	}

	for _, p := range params {
		if err := m.AddParameter(p.name, p.values...); err != nil {
			return err
		}
	}

	if *flagPrint {
		doc, err := m.XML()
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(doc)
		return err
	}

	return m.Write(ctx, studymod.WriteOptions{
		ExportModifier: *flagExportModifier,
		ProjectFile:    *flagProject,
	})
}

func runRun(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("run", flag.ExitOnError)
	fi := addInstallFlags(flags)
	flags.Usage = func() {
		fmt.Println("usage: mfauto run [OPTION]... STUDY...")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		return err
	}

	if flags.NArg() < 1 {
		flags.Usage()
		return fmt.Errorf("study required")
	}

	inst, err := fi.install()
	if err != nil {
		return err
	}

	r := runstudy.NewRunner(inst)
	for _, sdy := range flags.Args() {
		if err := r.Run(ctx, sdy, nil); err != nil {
			return err
		}
	}

	return nil
}

// resultFlag collects -result id[:name] options
type resultFlag []studyrlt.ResultSpec

func (r *resultFlag) String() string {
	var s []string
	for _, v := range *r {
		s = append(s, strconv.Itoa(v.ID))
	}
	return strings.Join(s, ",")
}

func (r *resultFlag) Set(s string) error {
	idS, name, _ := strings.Cut(s, ":")
	id, err := strconv.Atoi(strings.TrimSpace(idS))
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid result id: %v", idS)
	}
	*r = append(*r, studyrlt.ResultSpec{ID: id, Name: strings.TrimSpace(name)})
	return nil
}

func runExport(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("export", flag.ExitOnError)
	fi := addInstallFlags(flags)
	flagOutDir := flags.String("outDir", "", "export directory, default directory of -outFile or of the study")
	flagOutFile := flags.String("outFile", "", "mesh file receiving result fields ("+strings.Join(meshio.Formats, ", ")+")")
	flagLog := flags.Bool("log", false, "export the analysis log")
	flagMesh := flags.String("mesh", "", "comma separated mesh formats to export, 'raw' for the Patran file only")
	flagAllSteps := flags.Bool("allSteps", false, "export every time step of results")
	flagNPY := flags.Bool("npy", false, "also write single step results as .npy")
	flagRawOnly := flags.Bool("rawOnly", false, "only export the raw XML of results")
	var results resultFlag
	flags.Var(&results, "result", "result to export, id[:name], repeatable")
	flags.Usage = func() {
		fmt.Println("usage: mfauto export [OPTION]... STUDY")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		return err
	}

	if flags.NArg() != 1 {
		flags.Usage()
		return fmt.Errorf("study required")
	}

	inst, err := fi.install()
	if err != nil {
		return err
	}

	e := studyrlt.NewExporter(inst, flags.Arg(0), *flagOutDir, *flagOutFile)

	if *flagLog {
		if _, err := e.ExportLog(ctx); err != nil {
			return err
		}
	}

	if *flagMesh != "" {
		o := studyrlt.MeshOptions{}
		if *flagMesh == "raw" {
			o.RawOnly = true
		} else {
			o.Formats = strings.Split(*flagMesh, ",")
		}
		if err := e.ExportMesh(ctx, o); err != nil {
			return err
		}
	}

	for _, r := range results {
		r.AllSteps = *flagAllSteps
		r.NPY = *flagNPY
		r.RawOnly = *flagRawOnly
		if _, err := e.ExportResult(ctx, r); err != nil {
			return fmt.Errorf("result %v: %w", r.ID, err)
		}
	}

	if err := e.Finalize(); err != nil {
		return err
	}

	printArtifacts(e.Artifacts)

	return nil
}
