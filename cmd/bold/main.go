// Command bold queries the BOLD Systems service and prints normalized results.
//
//	bold -mode taxon-search -taxon-name Euptychia
//	bold -mode specimen-data -taxon Aves -geo Peru -output tsv
//	bold -mode trace-files -ids ACRJP618-11 -out ./traces
//	bold -mode identify -file payload.xml   # normalize a saved payload
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"bold-client-go/config"
	"bold-client-go/internal/archive"
	"bold-client-go/internal/fetcher"
	"bold-client-go/internal/model"
	"bold-client-go/internal/parser"
	"bold-client-go/internal/service"
)

var (
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed, color.Bold)
	okColor   = color.New(color.FgGreen)
)

func main() {
	if err := run(); err != nil {
		errColor.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		modeFlag     = flag.String("mode", "", "query mode: identify, taxon-search, taxon-data, specimen-data, sequence-data, full-data, trace-files")
		sequence     = flag.String("sequence", "", "DNA sequence or FASTA text to identify")
		seqFile      = flag.String("sequence-file", "", "FASTA file whose first record is identified")
		db           = flag.String("db", "", "identification database (COX1, COX1_SPECIES, COX1_SPECIES_PUBLIC, COX1_L640bp)")
		taxonName    = flag.String("taxon-name", "", "taxon name to search")
		fuzzy        = flag.Bool("fuzzy", false, "fuzzy taxon name search")
		resolve      = flag.Bool("resolve", false, "print only the best matching taxon for -taxon-name")
		taxID        = flag.String("tax-id", "", "taxon id for taxon-data")
		dataTypes    = flag.String("data-types", "", "comma separated taxon-data types")
		includeTree  = flag.Bool("include-tree", false, "include the taxonomic tree in taxon-data")
		taxon        = flag.String("taxon", "", "comma separated taxa filter")
		ids          = flag.String("ids", "", "comma separated sample or process ids")
		bin          = flag.String("bin", "", "comma separated BIN URIs")
		container    = flag.String("container", "", "comma separated projects or datasets")
		institutions = flag.String("institutions", "", "comma separated institutions")
		researchers  = flag.String("researchers", "", "comma separated researchers")
		geo          = flag.String("geo", "", "comma separated countries or provinces")
		marker       = flag.String("marker", "", "comma separated markers")
		format       = flag.String("format", "", "payload format for specimen-data and full-data (xml or tsv)")
		output       = flag.String("output", "json", "output format: json, yaml or tsv")
		file         = flag.String("file", "", "normalize a saved payload instead of calling BOLD")
		outDir       = flag.String("out", "", "directory for trace archives")
		dump         = flag.Bool("dump", false, "dump the parsed records to stderr")
		configPath   = flag.String("config", "", "YAML config file (default $BOLD_CONFIG)")
	)
	flag.Parse()

	godotenv.Load()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		return err
	}
	slog.SetDefault(cfg.NewLogger(os.Stderr))

	// -resolve always runs a taxon search, -mode is not needed
	mode := model.ModeTaxonSearch
	if !*resolve {
		if mode, err = model.ParseQueryMode(*modeFlag); err != nil {
			return err
		}
	} else if *taxonName == "" {
		return fmt.Errorf("-resolve needs -taxon-name")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var archiver *archive.Archiver
	if *outDir != "" {
		store, err := archive.NewLocalStore(*outDir)
		if err != nil {
			return err
		}
		archiver = archive.NewArchiver(store)
	} else if archiver, err = service.OpenArchiver(ctx, cfg); err != nil {
		return err
	}
	if mode.IsBinary() && archiver == nil {
		return fmt.Errorf("%s returns an archive, pass -out or set ARCHIVE_BACKEND", mode)
	}

	if *file != "" {
		resp, key, err := normalizeFile(ctx, mode, *file, archiver)
		if err != nil {
			return err
		}
		return report(resp, key, *output, *dump)
	}

	q := &fetcher.Query{
		Sequence:    *sequence,
		DB:          *db,
		TaxonName:   *taxonName,
		Fuzzy:       *fuzzy,
		TaxonID:     *taxID,
		DataTypes:   splitList(*dataTypes),
		IncludeTree: *includeTree,
		Filter: fetcher.Filter{
			Taxon:        splitList(*taxon),
			IDs:          splitList(*ids),
			Bin:          splitList(*bin),
			Container:    splitList(*container),
			Institutions: splitList(*institutions),
			Researchers:  splitList(*researchers),
			Geo:          splitList(*geo),
		},
		Marker: splitList(*marker),
		Format: *format,
	}
	if *seqFile != "" {
		data, err := os.ReadFile(*seqFile)
		if err != nil {
			return err
		}
		if q.Sequence, err = fetcher.PrepareSequence(data); err != nil {
			return err
		}
	}

	svc := service.NewBoldService(service.NewClient(cfg), service.OpenCache(ctx, cfg), archiver, cfg.CacheTTL)

	if *resolve {
		rec, score, err := svc.ResolveTaxon(ctx, *taxonName, *fuzzy)
		if err != nil {
			return err
		}
		okColor.Fprintln(os.Stderr, resolvedLine(rec, score))
		return report(model.NewRecordResponse(model.ModeTaxonSearch, model.FormatJSON, []model.Record{rec}, nil), "", *output, *dump)
	}

	res, err := svc.Query(ctx, mode, q)
	if err != nil {
		return err
	}
	if res.Cached {
		slog.Debug("served from cache", "url", res.URL)
	}
	return report(res.Response, res.ArchiveKey, *output, *dump)
}

// normalizeFile normalizes a saved payload. Trace archives are stored
// through archiver and their key returned.
func normalizeFile(ctx context.Context, mode model.QueryMode, name string, archiver *archive.Archiver) (*model.Response, string, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, "", err
	}
	resp, err := parser.Normalize(mode, data)
	if err != nil {
		return nil, "", err
	}
	if !resp.IsBinary() {
		return resp, "", nil
	}
	if archiver == nil {
		return nil, "", fmt.Errorf("%s returns an archive, pass -out or set ARCHIVE_BACKEND", mode)
	}
	key, err := archiver.Save(ctx, resp.Blob())
	if err != nil {
		return nil, "", err
	}
	return resp, key, nil
}

func report(resp *model.Response, archiveKey, output string, dump bool) error {
	if resp.IsBinary() {
		okColor.Fprintf(os.Stderr, "saved %d bytes to %s\n", len(resp.Blob()), archiveKey)
		return nil
	}

	for _, w := range resp.Warnings() {
		warnColor.Fprintln(os.Stderr, "warning:", w.Error())
	}
	if resp.Degraded() {
		warnColor.Fprintln(os.Stderr, "warning: payload was not XML, printing it as text")
	}
	if dump {
		spew.Fdump(os.Stderr, resp.Items())
	}

	if err := render(os.Stdout, resp, output); err != nil {
		return err
	}
	okColor.Fprintln(os.Stderr, summary(resp.Mode(), resp.Len()))
	return nil
}
