//go:build linux

package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/spf13/cobra"

	"github.com/connected-data-lake/cdl/internal/cachestore"
	"github.com/connected-data-lake/cdl/internal/catalog"
	"github.com/connected-data-lake/cdl/internal/record"
	"github.com/connected-data-lake/cdl/internal/sqlsurface"
	"github.com/connected-data-lake/cdl/internal/table"
)

func newMountCmd(cat *catalog.DatasetCatalog) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mount <from> <to>",
		Short: "Mount a remote dataset read-only (Linux only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := record.ParseGlobalPath(args[0])
			if err != nil {
				return err
			}
			if from.Dataset.Scheme != record.S3 {
				return fmt.Errorf("mount requires a remote dataset source, got %s", from.Dataset)
			}

			ctx := cmd.Context()
			store, err := cachestore.BuildForScheme(from.Dataset.Name, cat)
			if err != nil {
				return err
			}
			tbl, err := table.OpenTable(ctx, store, from.Dataset, cat)
			if err != nil {
				return err
			}
			res, err := tbl.ReadDirAll(ctx)
			if err != nil {
				return err
			}

			root, err := buildMountTree(tbl, res)
			if err != nil {
				return err
			}

			server, err := fs.Mount(args[1], root, &fs.Options{
				MountOptions: fuse.MountOptions{
					FsName: from.Dataset.String(),
					Name:   "cdl",
				},
			})
			if err != nil {
				return fmt.Errorf("mount %q: %w", args[1], err)
			}
			server.Wait()
			return nil
		},
	}
	return cmd
}

// dirNode and fileNode are read-only go-fuse nodes. The whole tree is
// built once at mount time from a full ReadDirAll scan rather than
// resolved lazily per Lookup, matching the read-only, out-of-core-scope
// contract of the mount command: a dataset materialized through cdl cp is
// not expected to change underneath a live mount.
type dirNode struct {
	fs.Inode
}

type fileNode struct {
	fs.Inode
	tbl    *table.Table
	parent string
	name   string
	size   uint64
	mode   uint32
	data   []byte
}

var _ fs.NodeGetattrer = (*fileNode)(nil)
var _ fs.NodeOpener = (*fileNode)(nil)
var _ fs.NodeReader = (*fileNode)(nil)

// buildMountTree turns a flat ReadDirAll result (one row per file, with
// "parent" the file's containing directory path and "name" its base
// name) into a go-fuse directory tree, creating intermediate directory
// inodes on demand as each file's parent path is split into components.
func buildMountTree(tbl *table.Table, res *sqlsurface.Result) (fs.InodeEmbedder, error) {
	idx := columnIndex(res.Columns)
	root := &dirNode{}

	for _, row := range res.Rows {
		parent, _ := row[idx["parent"]].(string)
		name, _ := row[idx["name"]].(string)
		size := asUint64(row[idx["size"]])
		mode := uint32(asUint64(row[idx["mode"]]))

		dir := &root.Inode
		for _, comp := range splitPath(parent) {
			child := dir.GetChild(comp)
			if child == nil {
				child = dir.NewPersistentInode(context.Background(), &dirNode{}, fs.StableAttr{Mode: syscall.S_IFDIR})
				dir.AddChild(comp, child, true)
			}
			dir = child
		}

		fn := &fileNode{tbl: tbl, parent: parent, name: name, size: size, mode: mode}
		child := dir.NewPersistentInode(context.Background(), fn, fs.StableAttr{Mode: syscall.S_IFREG})
		dir.AddChild(name, child, true)
	}
	return root, nil
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func columnIndex(cols []string) map[string]int {
	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		idx[c] = i
	}
	return idx
}

func asUint64(v interface{}) uint64 {
	switch n := v.(type) {
	case uint64:
		return n
	case uint32:
		return uint64(n)
	case int64:
		return uint64(n)
	case int:
		return uint64(n)
	default:
		return 0
	}
}

func (f *fileNode) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = f.mode | syscall.S_IFREG
	out.Size = f.size
	return 0
}

// Open fetches the file's chunks on first access and assembles them in
// chunk-offset order; the content then stays resident on the node for the
// life of the mount, matching mount's read-only, non-evicting contract.
func (f *fileNode) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	if f.data != nil {
		return nil, fuse.FOPEN_KEEP_CACHE, 0
	}
	cond := fmt.Sprintf("parent = '%s' AND name = '%s'", sqlEscape(f.parent), sqlEscape(f.name))
	res, err := f.tbl.ReadFilesByCondition(ctx, cond)
	if err != nil {
		return nil, 0, syscall.EIO
	}
	idx := columnIndex(res.Columns)
	type chunk struct {
		offset uint64
		data   []byte
	}
	chunks := make([]chunk, 0, len(res.Rows))
	for _, row := range res.Rows {
		data, _ := row[idx["data"]].([]byte)
		chunks = append(chunks, chunk{offset: asUint64(row[idx["chunk_offset"]]), data: data})
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].offset < chunks[j].offset })

	buf := make([]byte, 0, f.size)
	for _, c := range chunks {
		buf = append(buf, c.data...)
	}
	f.data = buf
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

func (f *fileNode) Read(ctx context.Context, fh fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	if off < 0 || off >= int64(len(f.data)) {
		return fuse.ReadResultData(nil), 0
	}
	end := off + int64(len(dest))
	if end > int64(len(f.data)) {
		end = int64(len(f.data))
	}
	return fuse.ReadResultData(f.data[off:end]), 0
}

func sqlEscape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
