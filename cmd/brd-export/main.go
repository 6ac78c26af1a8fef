package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/joelkehle/brd-assistant/internal/app"
	"github.com/joelkehle/brd-assistant/internal/config"
)

func main() {
	_ = godotenv.Load()
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

// run exports one session. Every return path goes through the deferred
// Close so store handles are released before the process exits.
func run(ctx context.Context, args []string, stdout io.Writer) (err error) {
	fs := flag.NewFlagSet("brd-export", flag.ContinueOnError)
	sessionID := fs.String("session", "", "session id to export")
	format := fs.String("format", "docx", "export format: docx, txt or pdf")
	outputPath := fs.String("out", "", "output file or directory (defaults to stdout for txt)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *sessionID == "" {
		return errors.New("missing required -session")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close: %w", cerr)
		}
	}()

	var data []byte
	var name string
	if *format == "pdf" {
		doc, err := a.Service.RenderPDF(ctx, *sessionID)
		if err != nil {
			return fmt.Errorf("render pdf: %w", err)
		}
		data, name = doc.Data, doc.Filename
	} else {
		res, err := a.Service.Export(ctx, *sessionID, *format)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		data, name = res.Document.Data, res.Document.Filename
		if res.Location != "" {
			log.Printf("artifact stored at %s", res.Location)
		}
	}

	if err := writeOutput(stdout, *outputPath, name, data, *format == "txt"); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func writeOutput(stdout io.Writer, outputPath, name string, data []byte, text bool) error {
	if outputPath == "" {
		if !text {
			outputPath = name
		} else {
			_, err := stdout.Write(data)
			return err
		}
	}
	if info, err := os.Stat(outputPath); err == nil && info.IsDir() {
		outputPath = filepath.Join(outputPath, name)
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %s (%d bytes)\n", outputPath, len(data))
	return nil
}
