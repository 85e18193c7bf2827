// geomtool is a CLI utility for inspecting the generated scene geometry,
// descriptor heap layouts and the wave solver without opening a window.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/Faultbox/towerscene/internal/engine/descriptor"
	"github.com/Faultbox/towerscene/internal/engine/mesh"
	"github.com/Faultbox/towerscene/internal/engine/scene"
	"github.com/Faultbox/towerscene/internal/engine/water"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "submeshes", "sub":
		err = cmdSubmeshes(os.Stdout, args)
	case "heap":
		err = cmdHeap(os.Stdout, args)
	case "waves":
		err = cmdWaves(os.Stdout, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`geomtool - scene geometry inspector

Usage:
  geomtool <command> [options]

Commands:
  submeshes [-format color|lit]      Show per-submesh counts and offsets
  heap [-objects O] [-frames N]      Show the CBV heap layout
  waves [-steps S] [-rows R -cols C] Run the wave solver without rendering

Examples:
  geomtool submeshes
  geomtool heap -objects 22 -frames 3
  geomtool waves -steps 500 -disturb 0.5`)
}

func cmdSubmeshes(w io.Writer, args []string) error {
	fs := flag.NewFlagSet("submeshes", flag.ContinueOnError)
	format := fs.String("format", "color", "Vertex format: color or lit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var vf mesh.VertexFormat
	switch *format {
	case "color":
		vf = mesh.FormatColor
	case "lit":
		vf = mesh.FormatLit
	default:
		return fmt.Errorf("unknown format %q", *format)
	}

	geo, err := scene.BuildShapeGeometry(vf)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SUBMESH\tINDICES\tSTART INDEX\tBASE VERTEX")
	for _, name := range scene.Submeshes() {
		sm, err := geo.Submesh(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", name, sm.IndexCount, sm.StartIndexLocation, sm.BaseVertexLocation)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Vertices: %d (%d bytes, stride %d)\n", geo.VertexCount(), geo.VertexBufferByteSize, geo.VertexByteStride)
	fmt.Fprintf(w, "Indices:  %d (%d bytes)\n", geo.IndexCount(), geo.IndexBufferByteSize)
	return nil
}

func cmdHeap(w io.Writer, args []string) error {
	fs := flag.NewFlagSet("heap", flag.ContinueOnError)
	objects := fs.Int("objects", 22, "Render items per frame")
	frames := fs.Int("frames", 3, "Frame resources in the ring")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *objects < 0 || *frames < 1 {
		return fmt.Errorf("need objects >= 0 and frames >= 1, got %d and %d", *objects, *frames)
	}

	l := descriptor.CBVLayout{Objects: *objects, Frames: *frames}

	fmt.Fprintf(w, "Descriptors: %d\n", l.NumDescriptors())
	fmt.Fprintf(w, "Pass offset: %d\n\n", l.PassOffset())

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FRAME\tOBJECT SLOTS\tPASS SLOT")
	for f := 0; f < l.Frames; f++ {
		span := "-"
		if l.Objects > 0 {
			span = fmt.Sprintf("%d..%d", l.ObjectIndex(f, 0), l.ObjectIndex(f, l.Objects-1))
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\n", f, span, l.PassIndex(f))
	}
	return tw.Flush()
}

func cmdWaves(w io.Writer, args []string) error {
	def := water.DefaultConfig()

	fs := flag.NewFlagSet("waves", flag.ContinueOnError)
	rows := fs.Int("rows", def.Rows, "Grid rows")
	cols := fs.Int("cols", def.Cols, "Grid columns")
	steps := fs.Int("steps", 100, "Solver steps to run")
	disturb := fs.Float64("disturb", 0.5, "Magnitude of the initial center disturbance")
	every := fs.Int("every", 25, "Print the peak height every N steps (0 = only at the end)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := def
	cfg.Rows, cfg.Cols = *rows, *cols
	waves, err := water.New(cfg)
	if err != nil {
		return err
	}
	if *disturb != 0 {
		if err := waves.Disturb(waves.Rows()/2, waves.Cols()/2, float32(*disturb)); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "Grid: %dx%d, %d triangles, %.1f x %.1f units\n",
		waves.Rows(), waves.Cols(), waves.TriangleCount(), waves.Width(), waves.Depth())
	fmt.Fprintf(w, "Step: %.3fs\n\n", waves.TimeStep())

	for i := 1; i <= *steps; i++ {
		waves.Step()
		if *every > 0 && i%*every == 0 && i != *steps {
			fmt.Fprintf(w, "step %5d  peak %.5f\n", i, waves.MaxAbsHeight())
		}
	}
	fmt.Fprintf(w, "step %5d  peak %.5f\n", waves.Steps(), waves.MaxAbsHeight())
	return nil
}
