package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/grimdork/climate"
	"github.com/retroenv/retrogolib/log"

	"github.com/Urethramancer/x86dis/disasm"
	"github.com/Urethramancer/x86dis/entity"
	"github.com/Urethramancer/x86dis/image"
	"github.com/Urethramancer/x86dis/opcode"
)

// options is the flag/argument struct climate.Parse fills in. This
// binary is a thin driver over the disasm library; all flag handling
// stays out here.
type options struct {
	Input   string `cli:"arg" help:"Raw flat binary image to disassemble."`
	Base    uint64 `cli:"flag" help:"Load address of the image." default:"0"`
	Entry   uint64 `cli:"flag" help:"Entry point address, relative to base." default:"0"`
	Mode    int    `cli:"flag" help:"Processor mode in bits: 16, 32 or 64." default:"32"`
	Verbose bool   `cli:"flag" short:"v" help:"Print decode events as they happen."`
}

func main() {
	var opts options
	if err := climate.Parse(&opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := log.NewLogger()

	data, err := os.ReadFile(opts.Input)
	if err != nil {
		logger.Error("reading input image", log.String("error", err.Error()))
		os.Exit(1)
	}

	img := image.NewMemory(data, opts.Base, opts.Base+opts.Entry, opts.Mode)
	tree := opcode.Build(opcode.NewSliceSource(opcode.BuiltinSyntaxes()), logger)
	store := disasm.NewStore()
	eng := disasm.NewEngine(store, tree, img, logger)

	p := &printer{verbose: opts.Verbose, stopped: make(chan struct{})}
	eng.AddListener(p)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := eng.Start(ctx); err != nil {
		logger.Error("starting engine", log.String("error", err.Error()))
		os.Exit(1)
	}

	// The engine stops on its own once the queue drains naturally (and
	// runs the trampoline post-pass itself); an interrupt cancels it
	// early instead. Either way, OnAnalyzeStop fires exactly once.
	select {
	case <-p.stopped:
	case <-ctx.Done():
		_ = eng.Stop()
	}

	printFunctions(store)
}

// printer is a disasm.Listener that echoes decode events to stdout
// when running verbosely, and signals main when analysis has ended.
type printer struct {
	verbose bool
	stopped chan struct{}
}

func (p *printer) OnAnalyzeStart() {
	if p.verbose {
		fmt.Println("; analysis started")
	}
}

func (p *printer) OnAnalyzeStop() {
	if p.verbose {
		fmt.Println("; analysis stopped")
	}
	close(p.stopped)
}

func (p *printer) OnAnalyzeError(addr uint64) {
	fmt.Printf("; error at %#x\n", addr)
}

func (p *printer) OnDecode(addr uint64, length int, e *entity.Entity) {
	if !p.verbose {
		return
	}
	fmt.Printf("%08x  %s\n", addr, e.String())
}

func (p *printer) OnChange(addr uint64) {}

func printFunctions(store *disasm.Store) {
	for _, f := range store.Functions() {
		fmt.Printf("%08x-%08x %s\n", f.Start, f.End, f.Name)
	}
}
