package directory

import (
	"path/filepath"
)

// enclosingPlan is the outcome of validating everything above a missing
// target: the nearest existing ancestor and the directories that will have
// to be created between it and the target, nearest-to-root first.
type enclosingPlan struct {
	anchor  string
	missing []string
}

// Planned reports whether a directory that does not exist yet will have been
// created by an earlier step before this one runs. A nil Planned plans
// nothing.
type Planned func(path string) bool

func (p Planned) has(path string) bool {
	return p != nil && p(path)
}

// checkEnclosing validates the ancestors of a target that does not exist
// yet. It only reads. A nil error means creating the target can proceed.
// Missing ancestors that planned reports are treated as creatable anchors.
func (e *Engine) checkEnclosing(desired DesiredState, planned Planned) (enclosingPlan, error) {
	parent := filepath.Dir(desired.Path)
	if parent == desired.Path {
		return enclosingPlan{}, newPathError("create", desired.Path, ErrEnclosingDirectoryDoesNotExist, nil)
	}

	if !desired.Recursive {
		observed, err := e.prober.Probe(parent)
		if err != nil {
			return enclosingPlan{}, err
		}
		if !observed.Exists && planned.has(parent) {
			return enclosingPlan{anchor: parent}, nil
		}
		if !observed.Exists {
			return enclosingPlan{}, newPathError("create", desired.Path, ErrEnclosingDirectoryDoesNotExist,
				&parentError{parent: parent})
		}
		if err := e.checkAnchor(desired.Path, observed); err != nil {
			return enclosingPlan{}, err
		}
		return enclosingPlan{anchor: parent}, nil
	}

	missing, anchor, err := e.missingAncestors(desired.Path, planned)
	if err != nil {
		return enclosingPlan{}, err
	}
	if !anchor.Exists && planned.has(anchor.Path) {
		return enclosingPlan{anchor: anchor.Path, missing: missing}, nil
	}
	if !anchor.Exists {
		return enclosingPlan{}, newPathError("create", desired.Path, ErrEnclosingDirectoryDoesNotExist, nil)
	}
	if err := e.checkAnchor(desired.Path, anchor); err != nil {
		return enclosingPlan{}, err
	}
	return enclosingPlan{anchor: anchor.Path, missing: missing}, nil
}

// missingAncestors walks upward from target, one probe per level, until it
// reaches a path that exists or that planned reports. It returns the missing
// ancestors ordered from the root downward and the snapshot of the path the
// walk stopped at. If even the filesystem root is missing the returned
// snapshot has Exists=false.
func (e *Engine) missingAncestors(target string, planned Planned) ([]string, ObservedState, error) {
	var missing []string

	current := filepath.Dir(target)
	for {
		observed, err := e.prober.Probe(current)
		if err != nil {
			return nil, ObservedState{}, err
		}
		if observed.Exists || planned.has(current) {
			reverse(missing)
			return missing, observed, nil
		}

		missing = append(missing, current)
		next := filepath.Dir(current)
		if next == current {
			reverse(missing)
			return missing, observed, nil
		}
		current = next
	}
}

// checkAnchor verifies the existing directory new entries will be created
// in.
func (e *Engine) checkAnchor(target string, anchor ObservedState) error {
	if !anchor.IsDirectory {
		return newPathError("create", target, ErrEnclosingPathIsFile, &parentError{parent: anchor.Path})
	}

	writable, err := e.prober.writable("create", anchor.Path)
	if err != nil {
		return err
	}
	if !writable {
		return newPathError("create", target, ErrEnclosingDirectoryNotWritable, &parentError{parent: anchor.Path})
	}
	return nil
}

// parentError names the ancestor a precondition failed on.
type parentError struct {
	parent string
}

func (e *parentError) Error() string {
	return "at " + e.parent
}

func reverse(paths []string) {
	for i, j := 0, len(paths)-1; i < j; i, j = i+1, j-1 {
		paths[i], paths[j] = paths[j], paths[i]
	}
}
