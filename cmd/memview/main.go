// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: cmd/memview/main.go
// Summary: Memory viewer CLI over a file, a stored block or the demo source.
// Usage: memview [-file path] [-base addr] [-db path -block name | -list] [-codec hex] [-dump]

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
	"strings"

	"golang.org/x/term"

	"github.com/framegrace/texelmem/apps/memview"
	"github.com/framegrace/texelmem/codec"
	"github.com/framegrace/texelmem/config"
	"github.com/framegrace/texelmem/internal/devshell"
	"github.com/framegrace/texelmem/memory"
	"github.com/framegrace/texelmem/source"
	"github.com/framegrace/texelmem/synchub"
)

func main() {
	filePath := flag.String("file", "", "File to view")
	dbPath := flag.String("db", "", "Block store database (default from texelmem.json store.path)")
	blockName := flag.String("block", "", "Stored block to view; with -file, the file is imported into it first")
	unitSize := flag.Int("unit", 1, "Bytes per addressable unit")
	baseFlag := flag.String("base", "", "Address at which -file is mapped (default from memview file_base)")
	list := flag.Bool("list", false, "List the blocks in the store and exit")
	codecName := flag.String("codec", "", "Cell codec: "+strings.Join(codec.Names(), ", "))
	verbose := flag.Bool("verbose", false, "Enable verbose logging")
	dump := flag.Bool("dump", false, "Print the first screen as text instead of running the viewer")
	lines := flag.Int("lines", 16, "Lines printed by -dump")
	flag.Parse()

	sys := config.System()
	if err := config.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
	}

	interactive := !*dump && term.IsTerminal(int(os.Stdout.Fd()))
	logFile, err := openLog(sys.GetString("", "log_file", ""), interactive)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log: %v\n", err)
		os.Exit(1)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	verboseLogs := *verbose || sys.GetBool("", "verbose", false)
	memory.SetVerboseLogging(verboseLogs)
	if verboseLogs && logFile != nil {
		memory.SetLogOutput(logFile)
	}

	appCfg := config.App("memview")
	viewCfg := memory.ConfigFromStore(appCfg)
	ctx := context.Background()

	if *list {
		if err := listBlocks(ctx, os.Stdout, sys, *dbPath); err != nil {
			fmt.Fprintf(os.Stderr, "memview: %v\n", err)
			os.Exit(1)
		}
		return
	}

	base := memory.Address(appCfg.GetAddress(memory.ConfigSection, "file_base", 0))
	if *baseFlag != "" {
		parsed, err := config.ParseAddress(*baseFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "memview: invalid -base: %v\n", err)
			os.Exit(2)
		}
		base = memory.Address(parsed)
	}

	src, title, closeSrc, err := openSource(ctx, sys, *filePath, *dbPath, *blockName, base, *unitSize)
	if err != nil {
		log.Printf("Memview: %v", err)
		fmt.Fprintf(os.Stderr, "memview: %v\n", err)
		os.Exit(1)
	}
	defer closeSrc()
	switch s := src.(type) {
	case *source.Static:
		viewCfg.UnitSize = s.UnitSize()
	case *source.Block:
		viewCfg.UnitSize = s.Info().UnitSize
	}

	switch {
	case *codecName != "":
		viewCfg.DefaultCodec = *codecName
	case *filePath != "":
		if data, err := readSample(*filePath); err == nil {
			viewCfg.DefaultCodec = codec.Detect(data).Name()
		}
	}

	if !interactive {
		if err := dumpView(os.Stdout, src, viewCfg, *lines); err != nil {
			fmt.Fprintf(os.Stderr, "memview: %v\n", err)
			os.Exit(1)
		}
		return
	}

	app, err := memview.New(title, src, viewCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "memview: %v\n", err)
		os.Exit(1)
	}
	runErr := devshell.RunApp(app)
	app.Close()
	if runErr != nil {
		log.Printf("Memview: run failed: %v", runErr)
		fmt.Fprintf(os.Stderr, "memview: %v\n", runErr)
		os.Exit(1)
	}
	log.Println("Memview: stopped cleanly")
}

// openLog sends the standard logger to path. The interactive viewer owns
// the terminal, so it always logs to a file.
func openLog(path string, interactive bool) (*os.File, error) {
	if path == "" {
		if !interactive {
			return nil, nil
		}
		p, err := config.CachePath("memview.log")
		if err != nil {
			return nil, err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	log.SetOutput(f)
	return f, nil
}

func storePath(sys config.Config, flagPath string) (string, error) {
	if flagPath != "" {
		return flagPath, nil
	}
	if p := sys.GetString("store", "path", ""); p != "" {
		return p, nil
	}
	return config.CachePath("blocks.db")
}

// openSource picks the data source from the flags: a stored block (with
// -file imported into it), a plain file, or the demo live source.
func openSource(ctx context.Context, sys config.Config, file, db, block string, base memory.Address, unitSize int) (memory.DataSource, string, func(), error) {
	noop := func() {}
	if block == "" {
		if file == "" {
			return source.NewDemo(), "demo", noop, nil
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, "", noop, err
		}
		return source.NewStatic(file, base, data, unitSize), filepath.Base(file), noop, nil
	}

	path, err := storePath(sys, db)
	if err != nil {
		return nil, "", noop, err
	}
	store, err := source.OpenSQLiteStore(path)
	if err != nil {
		return nil, "", noop, err
	}
	closeStore := func() {
		if err := store.Close(); err != nil {
			log.Printf("Memview: close store: %v", err)
		}
	}

	var b *source.Block
	if file != "" {
		data, rerr := os.ReadFile(file)
		if rerr != nil {
			closeStore()
			return nil, "", noop, rerr
		}
		b, err = store.ImportBlock(ctx, block, base, data, unitSize)
	} else {
		b, err = store.Block(ctx, block)
	}
	if err != nil {
		closeStore()
		if errors.Is(err, source.ErrNoBlock) {
			return nil, "", noop, fmt.Errorf("%w (use -file to import one)", err)
		}
		return nil, "", noop, err
	}
	return b, block, closeStore, nil
}

// listBlocks prints the stored blocks, one per line.
func listBlocks(ctx context.Context, w io.Writer, sys config.Config, db string) error {
	path, err := storePath(sys, db)
	if err != nil {
		return err
	}
	store, err := source.OpenSQLiteStore(path)
	if err != nil {
		return err
	}
	defer store.Close()
	blocks, err := store.Blocks(ctx)
	if err != nil {
		return err
	}
	for _, b := range blocks {
		fmt.Fprintf(w, "%-20s base %s  %d units of %d bytes\n", b.Name, b.Base, b.Size, b.UnitSize)
	}
	return nil
}

func readSample(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, 8000)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}

// dumpView prints n lines of a fresh view of src as plain text.
func dumpView(w io.Writer, src memory.DataSource, cfg memory.ViewConfig, n int) error {
	c, err := codec.New(cfg.DefaultCodec)
	if err != nil {
		return err
	}
	view, err := memory.NewView(src, c, synchub.New(), memory.InlineScheduler{}, cfg)
	if err != nil {
		return err
	}
	defer view.Dispose()
	if err := view.Resize(n); err != nil {
		return err
	}
	if err := view.BecomesVisible(); err != nil {
		return err
	}
	window, err := view.CurrentWindow()
	if err != nil {
		return err
	}
	cols := view.Geometry().ColumnsPerLine()
	for _, line := range window {
		var sb strings.Builder
		sb.WriteString(view.CellText(line, 0))
		for col := 1; col <= cols; col++ {
			sb.WriteByte(' ')
			sb.WriteString(view.CellText(line, col))
		}
		if _, err := fmt.Fprintln(w, sb.String()); err != nil {
			return err
		}
	}
	return nil
}
