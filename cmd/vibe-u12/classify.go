package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-u12/internal/annotate"
	"github.com/inodb/vibe-u12/internal/classify"
	"github.com/inodb/vibe-u12/internal/duckdb"
	"github.com/inodb/vibe-u12/internal/genome"
	"github.com/inodb/vibe-u12/internal/intron"
	"github.com/inodb/vibe-u12/internal/motif"
	"github.com/inodb/vibe-u12/internal/output"
)

// DefaultOutput is the classification table written when --out is not given.
const DefaultOutput = "inttype.xls"

// Config keys bound to classify flags.
const (
	keyHighMargin    = "classify.high_margin"
	keyMidMargin     = "classify.mid_margin"
	keyBranchMin     = "classify.branch_min"
	keyWeights       = "motif.weights"
	keyPseudocount   = "motif.pseudocount"
	keyBothStrands   = "scan.both_strands"
	keyWorkers       = "run.workers"
	keyOnWindowError = "run.on_window_error"
)

type classifyOptions struct {
	bedPath    string
	donorPath  string
	branchPath string
	genomePath string
	outPath    string
	dbPath     string
}

func newClassifyCmd(a *app) *cobra.Command {
	var opts classifyOptions

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify introns as U2 or U12",
		Long: `Score the donor and branch-point windows of every intron in a BED file
against donor and branch PWMs, then assign type, subtype and confidence.`,
		Example: `  vibe-u12 classify -i introns.bed -d donor.pwm -b branch.pwm -g genome.fa
  vibe-u12 classify -i introns.bed.gz -d donor.pwm -b branch.pwm -g genome.fa.gz -o - --db u12.duckdb
  vibe-u12 classify -i introns.bed -d donor.pwm -b branch.pwm -g genome.fa --on-window-error skip`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(a, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.bedPath, "bed", "i", "", "Intron BED file (use '-' for stdin)")
	f.StringVarP(&opts.donorPath, "donor", "d", "", "Donor PWM file")
	f.StringVarP(&opts.branchPath, "branch", "b", "", "Branch-point PWM file")
	f.StringVarP(&opts.genomePath, "genome", "g", "", "Reference genome FASTA (optionally gzipped)")
	f.StringVarP(&opts.outPath, "out", "o", DefaultOutput, "Output table (use '-' for stdout)")
	f.StringVar(&opts.dbPath, "db", "", "Also store results in this DuckDB database")

	f.Float64("high-margin", classify.DefaultThresholds().HighMargin, "Donor margin for a High confidence call")
	f.Float64("mid-margin", classify.DefaultThresholds().MidMargin, "Donor margin for a Mid confidence call")
	f.Float64("branch-min", classify.DefaultThresholds().BranchMin, "Branch score supporting a Mid confidence call")
	f.String("weights", string(motif.WeightsAuto), "PWM weight type: auto, logodds, probability")
	f.Float64("pseudocount", motif.DefaultPseudocount, "Pseudocount for probability to log-odds conversion")
	f.Bool("both-strands", false, "Also scan windows on the reverse complement")
	f.Int("workers", 0, "Scan workers (0 = number of CPUs)")
	f.String("on-window-error", string(annotate.PolicyAbort), "Window out of bounds: abort or skip")

	for key, flag := range map[string]string{
		keyHighMargin:    "high-margin",
		keyMidMargin:     "mid-margin",
		keyBranchMin:     "branch-min",
		keyWeights:       "weights",
		keyPseudocount:   "pseudocount",
		keyBothStrands:   "both-strands",
		keyWorkers:       "workers",
		keyOnWindowError: "on-window-error",
	} {
		viper.BindPFlag(key, f.Lookup(flag))
	}

	return cmd
}

func (o classifyOptions) validate() error {
	missing := []struct{ name, value string }{
		{"--bed", o.bedPath},
		{"--donor", o.donorPath},
		{"--branch", o.branchPath},
		{"--genome", o.genomePath},
	}
	for _, m := range missing {
		if m.value == "" {
			return usagef("%s is required", m.name)
		}
	}
	return nil
}

func runClassify(a *app, opts classifyOptions) error {
	if err := opts.validate(); err != nil {
		return err
	}
	log := a.logger

	thresholds := classify.Thresholds{
		HighMargin: viper.GetFloat64(keyHighMargin),
		MidMargin:  viper.GetFloat64(keyMidMargin),
		BranchMin:  viper.GetFloat64(keyBranchMin),
	}
	weights, err := motif.ParseWeightMode(viper.GetString(keyWeights))
	if err != nil {
		return &usageError{err: err}
	}
	policy, err := annotate.ParseWindowErrorPolicy(viper.GetString(keyOnWindowError))
	if err != nil {
		return &usageError{err: err}
	}
	parseOpts := motif.ParseOptions{Weights: weights, Pseudocount: viper.GetFloat64(keyPseudocount)}

	donor, err := motif.Load(opts.donorPath, parseOpts)
	if err != nil {
		return fmt.Errorf("load donor motifs: %w", err)
	}
	branch, err := motif.Load(opts.branchPath, parseOpts)
	if err != nil {
		return fmt.Errorf("load branch motifs: %w", err)
	}
	log.Info("loaded motifs",
		zap.Strings("donor", donor.Names()),
		zap.Strings("branch", branch.Names()))

	ref, err := genome.Load(opts.genomePath)
	if err != nil {
		return fmt.Errorf("load genome: %w", err)
	}
	log.Info("loaded genome", zap.String("path", opts.genomePath), zap.Int("contigs", len(ref.Contigs())))

	ann, err := annotate.NewAnnotator(ref, donor, branch)
	if err != nil {
		return err
	}
	ann.SetLogger(log)
	if err := ann.SetThresholds(thresholds); err != nil {
		return &usageError{err: fmt.Errorf("thresholds: %w", err)}
	}
	ann.SetWindowErrorPolicy(policy)
	ann.SetBothStrands(viper.GetBool(keyBothStrands))
	ann.SetWorkers(viper.GetInt(keyWorkers))

	parser, err := intron.NewParser(opts.bedPath)
	if err != nil {
		return err
	}
	defer parser.Close()

	var out io.Writer = a.stdout
	if opts.outPath != "-" {
		f, err := os.Create(opts.outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	writer := output.NewTabWriter(out)
	if err := writer.WriteHeader(); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	res, err := ann.AnnotateAll(parser, writer)
	if err != nil {
		if opts.outPath != "-" {
			os.Remove(opts.outPath)
		}
		return err
	}
	if opts.outPath != "-" {
		log.Info("wrote classification table",
			zap.String("path", opts.outPath),
			zap.Int("introns", len(res.Records)))
	}

	if opts.dbPath != "" {
		if err := storeResults(opts, res, log); err != nil {
			return err
		}
	}
	return nil
}

// storeResults writes the classified records and the run's input
// fingerprints to the results database.
func storeResults(opts classifyOptions, res *annotate.Result, log *zap.Logger) error {
	store, err := duckdb.Open(opts.dbPath)
	if err != nil {
		return fmt.Errorf("open results database: %w", err)
	}
	defer store.Close()

	if err := store.WriteResults(res.Records); err != nil {
		return fmt.Errorf("write results: %w", err)
	}

	var inputs []duckdb.RunInput
	for _, in := range []struct{ role, path string }{
		{"bed", opts.bedPath},
		{"donor", opts.donorPath},
		{"branch", opts.branchPath},
		{"genome", opts.genomePath},
	} {
		if in.path == "-" {
			continue
		}
		fp, err := duckdb.StatFile(in.path)
		if err != nil {
			return fmt.Errorf("fingerprint %s: %w", in.role, err)
		}
		inputs = append(inputs, duckdb.RunInput{Role: in.role, FileFingerprint: fp})
	}

	id, err := store.RecordRun(len(res.Records), len(res.Summary.Skipped), inputs)
	if err != nil {
		return err
	}
	log.Info("stored results",
		zap.String("db", opts.dbPath),
		zap.Int64("run", id),
		zap.Int("introns", len(res.Records)))
	return nil
}
