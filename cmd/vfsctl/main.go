// Command vfsctl is a small command-line front end over the VFS dispatch
// layer, standing in for the CLI/REPL described as out of scope for the
// core library itself.
package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/FireNX70/sampler-file-manager-sub000/emu3"
	"github.com/FireNX70/sampler-file-manager-sub000/hostfs"
	"github.com/FireNX70/sampler-file-manager-sub000/vfs"
	"github.com/FireNX70/sampler-file-manager-sub000/vfserrors"
)

func main() {
	app := &cli.App{
		Name:  "vfsctl",
		Usage: "inspect and manipulate EMU3 disk images through the VFS layer",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "image", Usage: "path to an EMU3 disk image to mount"},
			&cli.StringFlag{Name: "mountpoint", Value: "/mnt", Usage: "where to mount --image"},
		},
		Commands: []*cli.Command{
			{
				Name:      "ls",
				Usage:     "list a path",
				ArgsUsage: "PATH",
				Action:    runLs,
			},
			{
				Name:      "fsck",
				Usage:     "check and repair the mounted image",
				ArgsUsage: "MOUNTPOINT",
				Action:    runFsck,
			},
			{
				Name:      "mkfs",
				Usage:     "format a fresh EMU3 image",
				ArgsUsage: "IMAGE_PATH",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "blocks", Usage: "total 512-byte blocks"},
					&cli.UintFlag{Name: "cluster-shift", Usage: "cluster_shift (0-9)"},
					&cli.StringFlag{Name: "geometry", Usage: "use a predefined disk geometry slug instead of --blocks"},
				},
				Action: runMkfs,
			},
			{
				Name:      "mkdir",
				Usage:     "create a directory",
				ArgsUsage: "PATH",
				Action:    runMkdir,
			},
			{
				Name:      "rm",
				Usage:     "remove a file or directory",
				ArgsUsage: "PATH",
				Action:    runRemove,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("vfsctl: %s", err)
	}
}

// buildDispatch mounts --image at --mountpoint (if given) over a host-backed
// VFS dispatch, per spec §4.F.
func buildDispatch(c *cli.Context) (*vfs.Dispatch, error) {
	logger := slog.Default()
	host := hostfs.New(hostfs.MountOptions{Logger: logger})
	d := vfs.New(host, logger)

	imagePath := c.String("image")
	if imagePath == "" {
		return d, nil
	}

	f, err := os.OpenFile(imagePath, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}

	code := d.Mount(c.String("mountpoint"), func() (vfs.Driver, vfserrors.Code) {
		return emu3.Mount(f, emu3.MountOptions{Logger: logger})
	})
	if !code.Ok() {
		return nil, fmt.Errorf("mount %s: %s", imagePath, code)
	}
	return d, nil
}

func runLs(c *cli.Context) error {
	d, err := buildDispatch(c)
	if err != nil {
		return err
	}
	path := c.Args().First()
	if path == "" {
		path = "/"
	}
	entries, code := d.List(path, false)
	if !code.Ok() {
		return fmt.Errorf("ls %s: %s", path, code)
	}
	for _, e := range entries {
		kind := "f"
		if e.IsDir {
			kind = "d"
		}
		fmt.Printf("%s %10d %s\n", kind, e.Size, e.Name)
	}
	return nil
}

func runFsck(c *cli.Context) error {
	d, err := buildDispatch(c)
	if err != nil {
		return err
	}
	mountPoint := c.Args().First()
	if mountPoint == "" {
		mountPoint = c.String("mountpoint")
	}
	status, err := d.Fsck(mountPoint)
	if err != nil {
		return fmt.Errorf("fsck: %w", err)
	}
	fmt.Printf("fsck status: 0x%04x\n", status)
	return nil
}

func runMkfs(c *cli.Context) error {
	imagePath := c.Args().First()
	if imagePath == "" {
		return fmt.Errorf("mkfs requires an image path")
	}

	opts := emu3.MkfsOptions{
		TotalBlocks:  uint32(c.Uint("blocks")),
		ClusterShift: uint8(c.Uint("cluster-shift")),
	}
	if slug := c.String("geometry"); slug != "" {
		geometry, err := emu3.GetPredefinedDiskGeometry(slug)
		if err != nil {
			return err
		}
		opts.Geometry = &geometry
	}

	totalBlocks := opts.TotalBlocks
	if totalBlocks == 0 && opts.Geometry != nil {
		totalBlocks = opts.Geometry.TotalBlocks
	}

	f, err := os.Create(imagePath)
	if err != nil {
		return fmt.Errorf("create image: %w", err)
	}
	defer f.Close()

	if err := f.Truncate(int64(totalBlocks) * emu3.BlockSize); err != nil {
		return fmt.Errorf("allocate image: %w", err)
	}

	code := emu3.Mkfs(f, opts)
	if !code.Ok() {
		return fmt.Errorf("mkfs: %s", code)
	}
	fmt.Printf("formatted %s (%s blocks)\n", imagePath, strconv.Itoa(int(totalBlocks)))
	return nil
}

func runMkdir(c *cli.Context) error {
	d, err := buildDispatch(c)
	if err != nil {
		return err
	}
	path := c.Args().First()
	code := d.Mkdir(path)
	if !code.Ok() {
		return fmt.Errorf("mkdir %s: %s", path, code)
	}
	return nil
}

func runRemove(c *cli.Context) error {
	d, err := buildDispatch(c)
	if err != nil {
		return err
	}
	path := c.Args().First()
	code := d.Remove(path)
	if !code.Ok() {
		return fmt.Errorf("rm %s: %s", path, code)
	}
	return nil
}
