package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"arborcraft.ai/internal/persistence/snapshot"
)

type EpochMeta struct {
	Epoch     uint64 `json:"epoch"`
	Seq       uint64 `json:"seq"`
	WorldID   string `json:"world_id"`
	Seed      int64  `json:"seed"`
	Snapshot  string `json:"snapshot"`
	Chunks    int    `json:"chunks"`
	CreatedAt string `json:"created_at"`
}

// ArchiveEpochSnapshot keeps the first snapshot of every epoch of `every`
// sequence numbers under `worldDir/archives/epoch_<NNN>/`. It reports
// archived=false when every is zero or the epoch already has an archive.
func ArchiveEpochSnapshot(worldDir, snapshotPath string, snap snapshot.SnapshotV1, every uint64) (epoch uint64, archivedPath string, archived bool, err error) {
	if every == 0 {
		return 0, "", false, nil
	}
	epoch = snap.Header.Seq / every
	archiveDir := filepath.Join(worldDir, "archives", fmt.Sprintf("epoch_%03d", epoch))
	if _, err := os.Stat(archiveDir); err == nil {
		return epoch, "", false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return 0, "", false, err
	}
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return 0, "", false, err
	}

	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return 0, "", false, err
	}

	meta := EpochMeta{
		Epoch:     epoch,
		Seq:       snap.Header.Seq,
		WorldID:   snap.Header.WorldID,
		Seed:      snap.Seed,
		Snapshot:  filepath.Base(dst),
		Chunks:    len(snap.Chunks),
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644)
	}

	return epoch, dst, true, nil
}

// PruneSnapshots deletes all but the newest keep snapshots in
// `worldDir/snapshots`. Files that are not named <seq>.snap.zst are left
// alone.
func PruneSnapshots(worldDir string, keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}
	dir := filepath.Join(worldDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	type numbered struct {
		seq  uint64
		path string
	}
	var all []numbered
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		seq, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		all = append(all, numbered{seq: seq, path: filepath.Join(dir, name)})
	}
	if len(all) <= keep {
		return nil, nil
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seq > all[j].seq })
	var removed []string
	for _, n := range all[keep:] {
		if err := os.Remove(n.path); err != nil {
			return removed, err
		}
		removed = append(removed, n.path)
	}
	return removed, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
