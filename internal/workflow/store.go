package workflow

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// fieldSep joins the slot name and the original filename in a stored name.
const fieldSep = "__"

// metaDir holds the owner-to-email sidecar files.
const metaDir = "meta"

// Repository is the workflow's view of storage. The trio is deliberately
// narrow so the directory tree can later be swapped for an indexed store
// without touching the service layer.
type Repository interface {
	ListByState(state State, owner string) ([]Item, error)
	Move(id string, from, to State) error
	Delete(id string, from State) error
}

// Store adds the content operations the service needs beyond pure workflow
// mutation.
type Store interface {
	Repository
	Open(id string, state State) (io.ReadCloser, error)
}

// DirStore keeps items as files under
// <root>/<state>/<ownerID>/<field>__<originalName>.
type DirStore struct {
	root string
}

// NewDirStore creates the state and meta directories under root.
func NewDirStore(root string) (*DirStore, error) {
	for _, st := range States {
		if err := os.MkdirAll(filepath.Join(root, string(st)), 0o755); err != nil {
			return nil, fmt.Errorf("creating state dir: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Join(root, metaDir), 0o755); err != nil {
		return nil, fmt.Errorf("creating meta dir: %w", err)
	}
	return &DirStore{root: root}, nil
}

// Save stores an upload into the pending state and returns the resulting
// item. The original filename is sanitized; a name collision gets a random
// prefix instead of overwriting the earlier upload.
func (s *DirStore) Save(owner, field, name string, data []byte) (Item, error) {
	if field == "" {
		return Item{}, fmt.Errorf("field is required: %w", ErrBadItemID)
	}
	if !safeComponent(owner) {
		return Item{}, fmt.Errorf("owner %q: %w", owner, ErrBadItemID)
	}
	dir := filepath.Join(s.root, string(StatePending), owner)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Item{}, fmt.Errorf("creating owner dir: %w", err)
	}

	stored := field + fieldSep + sanitizeName(name)
	path := filepath.Join(dir, stored)
	if _, err := os.Stat(path); err == nil {
		stored = uuid.New().String() + "_" + stored
		path = filepath.Join(dir, stored)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Item{}, fmt.Errorf("writing upload: %w", err)
	}

	sum := sha256.Sum256(data)
	field, orig := splitStoredName(stored)
	return Item{
		ID:     owner + "/" + stored,
		Owner:  owner,
		Field:  field,
		Name:   orig,
		State:  StatePending,
		Size:   int64(len(data)),
		SHA256: hex.EncodeToString(sum[:]),
		Email:  s.OwnerEmail(owner),
	}, nil
}

// SetOwnerEmail records the display email for an owner so reviewers can see
// who submitted what.
func (s *DirStore) SetOwnerEmail(owner, email string) error {
	if !safeComponent(owner) {
		return fmt.Errorf("owner %q: %w", owner, ErrBadItemID)
	}
	path := filepath.Join(s.root, metaDir, sanitizeName(owner)+".txt")
	if err := os.WriteFile(path, []byte(email), 0o644); err != nil {
		return fmt.Errorf("writing owner meta: %w", err)
	}
	return nil
}

// OwnerEmail returns the recorded email for an owner, or "" when none is
// known.
func (s *DirStore) OwnerEmail(owner string) string {
	data, err := os.ReadFile(filepath.Join(s.root, metaDir, sanitizeName(owner)+".txt"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// ListByState enumerates items in one state, optionally scoped to a single
// owner. The listing is read-only and sorted by owner then stored name, so
// repeated calls over an unchanged tree agree.
func (s *DirStore) ListByState(state State, owner string) ([]Item, error) {
	if !state.known() {
		return nil, fmt.Errorf("%q: %w", state, ErrInvalidState)
	}

	stateDir := filepath.Join(s.root, string(state))
	owners, err := os.ReadDir(stateDir)
	if err != nil {
		return nil, fmt.Errorf("reading state dir: %w", err)
	}

	var items []Item
	for _, od := range owners {
		if !od.IsDir() {
			continue
		}
		if owner != "" && od.Name() != owner {
			continue
		}
		email := s.OwnerEmail(od.Name())

		files, err := os.ReadDir(filepath.Join(stateDir, od.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading owner dir: %w", err)
		}
		for _, fe := range files {
			if fe.IsDir() {
				continue
			}
			info, err := fe.Info()
			if err != nil {
				continue
			}
			field, orig := splitStoredName(fe.Name())
			items = append(items, Item{
				ID:    od.Name() + "/" + fe.Name(),
				Owner: od.Name(),
				Field: field,
				Name:  orig,
				State: state,
				Size:  info.Size(),
				Email: email,
			})
		}
	}

	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

// Move relocates one item between states, keeping its stored name. The
// destination container is created first; a missing source fails with
// ErrMissingItem and no side effect. The rename itself is the only
// mutation, so a racing second mover cannot end up with two copies.
func (s *DirStore) Move(id string, from, to State) error {
	if !from.known() || !to.known() {
		return fmt.Errorf("move %s -> %s: %w", from, to, ErrInvalidState)
	}
	owner, name, err := splitID(id)
	if err != nil {
		return err
	}

	destDir := filepath.Join(s.root, string(to), owner)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("creating destination: %w", err)
	}

	src := filepath.Join(s.root, string(from), owner, name)
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%q in %s: %w", id, from, ErrMissingItem)
		}
		return fmt.Errorf("checking source: %w", err)
	}

	if err := os.Rename(src, filepath.Join(destDir, name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%q in %s: %w", id, from, ErrMissingItem)
		}
		return fmt.Errorf("moving item: %w", err)
	}
	return nil
}

// Delete removes one item from the given state.
func (s *DirStore) Delete(id string, from State) error {
	if !from.known() {
		return fmt.Errorf("%q: %w", from, ErrInvalidState)
	}
	owner, name, err := splitID(id)
	if err != nil {
		return err
	}
	path := filepath.Join(s.root, string(from), owner, name)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%q in %s: %w", id, from, ErrMissingItem)
		}
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

// Path resolves an item's on-disk location without opening it.
func (s *DirStore) Path(id string, state State) (string, error) {
	if !state.known() {
		return "", fmt.Errorf("%q: %w", state, ErrInvalidState)
	}
	owner, name, err := splitID(id)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, string(state), owner, name), nil
}

// Open returns the item's content for download.
func (s *DirStore) Open(id string, state State) (io.ReadCloser, error) {
	if !state.known() {
		return nil, fmt.Errorf("%q: %w", state, ErrInvalidState)
	}
	owner, name, err := splitID(id)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.root, string(state), owner, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%q in %s: %w", id, state, ErrMissingItem)
		}
		return nil, fmt.Errorf("opening item: %w", err)
	}
	return f, nil
}

// splitID breaks "<owner>/<storedName>" apart, rejecting anything that
// could escape the store root.
func splitID(id string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(id, "/")
	if !ok || owner == "" || name == "" {
		return "", "", fmt.Errorf("%q: %w", id, ErrBadItemID)
	}
	if !safeComponent(owner) || !safeComponent(name) {
		return "", "", fmt.Errorf("%q: %w", id, ErrBadItemID)
	}
	return owner, name, nil
}

// safeComponent reports whether part is usable as a single path component
// under the store root. Writes and reads apply the same rule, so every
// saved item stays addressable by its ID.
func safeComponent(part string) bool {
	if part == "" || part == "." || part == ".." {
		return false
	}
	return !strings.ContainsAny(part, `/\`) && !strings.Contains(part, "..")
}

// splitStoredName recovers the slot name and original filename from a
// stored name, tolerating the random collision prefix.
func splitStoredName(stored string) (field, name string) {
	if i := strings.Index(stored, fieldSep); i >= 0 {
		field, name = stored[:i], stored[i+len(fieldSep):]
		// Strip the 36-char UUID collision prefix when present.
		if len(field) > 37 && field[36] == '_' {
			if _, err := uuid.Parse(field[:36]); err == nil {
				field = field[37:]
			}
		}
		return field, name
	}
	return "", stored
}

// sanitizeName reduces an uploaded filename to a safe flat name.
func sanitizeName(name string) string {
	name = filepath.Base(filepath.ToSlash(name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		out = "file"
	}
	return out
}
