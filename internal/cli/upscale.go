package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v7"
	"github.com/vbauerster/mpb/v7/decor"

	"upscaled/internal/manager"
)

type upscaleOpts struct {
	model  string
	outDir string
	quiet  bool
}

func newUpscaleCmd(a *app) *cobra.Command {
	var o upscaleOpts
	cmd := &cobra.Command{
		Use:     "upscale <image>",
		Short:   "Upscale one image and write the result next to it",
		Example: "  upscaled upscale photo.png --model Xenova/swin2SR-classical-sr-x2-64 -o out/",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.upscale(cmd.Context(), args[0], o, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVar(&o.model, "model", "", "Model id (defaults to the configured default model)")
	cmd.Flags().StringVarP(&o.outDir, "out", "o", "", "Output directory (defaults to the input's directory)")
	cmd.Flags().BoolVarP(&o.quiet, "quiet", "q", false, "Do not render a progress bar")
	return cmd
}

func (a *app) upscale(ctx context.Context, in string, o upscaleOpts, stdout, stderr io.Writer) error {
	content, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	if o.outDir == "" {
		o.outDir = filepath.Dir(in)
	}
	if err := os.MkdirAll(o.outDir, 0o755); err != nil {
		return err
	}
	m, err := newManager(a.cfg, a.log)
	if err != nil {
		return err
	}
	defer m.Close()
	if o.model == "" {
		o.model = initialModel(a.cfg)
	}

	b := manager.NewBroadcaster(64)
	m.SetEventPublisher(b)
	events, unsubscribe := b.Subscribe()
	var barOut io.Writer
	if !o.quiet {
		barOut = stderr
	}
	p := mpb.NewWithContext(ctx, mpb.WithOutput(barOut), mpb.WithWidth(40), mpb.WithRefreshRate(120*time.Millisecond))
	bar := p.AddBar(100,
		mpb.PrependDecorators(decor.Name(o.model, decor.WC{W: len(o.model) + 1, C: decor.DidentRight})),
		mpb.AppendDecorators(decor.Percentage()),
	)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for e := range events {
			if e.Name != manager.EventLoadProgress {
				continue
			}
			if pct, ok := e.Fields["percent"].(int); ok {
				bar.SetCurrent(int64(pct))
			}
		}
	}()

	loadErr := m.SelectModel(o.model)
	if loadErr == nil {
		loadErr = m.Loaded(ctx)
	}
	unsubscribe()
	wg.Wait()
	if loadErr != nil {
		bar.Abort(false)
		p.Wait()
		return fmt.Errorf("%s", manager.UserMessage(loadErr))
	}
	bar.SetTotal(100, true)
	p.Wait()

	if err := m.SelectImage(content, filepath.Base(in)); err != nil {
		return fmt.Errorf("%s", manager.UserMessage(err))
	}
	src := m.Snapshot().Image
	out, err := m.Run(ctx)
	if err != nil {
		return fmt.Errorf("%s", manager.UserMessage(err))
	}
	d, err := m.Download()
	if err != nil {
		return err
	}
	dest := filepath.Join(o.outDir, d.Name)
	if err := os.WriteFile(dest, d.Data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s  %dx%d (%s) -> %dx%d (%s) in %s\n", dest,
		src.Width, src.Height, humanize.Bytes(uint64(len(content))),
		out.Width, out.Height, humanize.Bytes(uint64(len(d.Data))),
		manager.ProcessingTime(out.Elapsed))
	return nil
}
