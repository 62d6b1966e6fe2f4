package manifest

import (
	"path"

	"github.com/google/uuid"

	"github.com/matzehuels/inksite/pkg/errors"
)

// Build resolves records into a Manifest rooted at rootSpec.
//
// rootSpec is either a folder id or the name of a root-level folder. Build
// never degrades: an unknown id is a source-integrity error, and any missing
// or ambiguous root, Home, Logo, Posts or duplicate sibling name is a
// configuration error reporting what was found. A listing that repeats a
// record id is a source-integrity error.
func Build(records *Collection, rootSpec string) (*Manifest, error) {
	if dups := records.Duplicates(); len(dups) > 0 {
		return nil, errors.New(errors.ErrCodeSourceIntegrity,
			"%d record ids listed more than once, first %s", len(dups), dups[0])
	}

	root, err := resolveRoot(records, rootSpec)
	if err != nil {
		return nil, err
	}

	home, err := rootDocument(records, root, HomeName)
	if err != nil {
		return nil, err
	}
	logo, err := rootDocument(records, root, LogoName)
	if err != nil {
		return nil, err
	}

	folders := matching(records.Children(root.ID.String()), PostsName, TypeCollection)
	switch len(folders) {
	case 1:
	case 0:
		return nil, errors.New(errors.ErrCodeConfig, "missing %q folder in site root", PostsName)
	default:
		return nil, errors.New(errors.ErrCodeConfig, "found %d %q folders in site root", len(folders), PostsName)
	}

	visited := map[uuid.UUID]bool{root.ID: true}
	posts, err := mirror(records, folders[0], PostsName, visited)
	if err != nil {
		return nil, err
	}
	return &Manifest{Home: home.Meta(), Logo: logo.Meta(), Posts: posts}, nil
}

func resolveRoot(records *Collection, spec string) (Record, error) {
	if id, err := uuid.Parse(spec); err == nil {
		r, ok := records.Get(id)
		if !ok {
			return Record{}, errors.New(errors.ErrCodeSourceIntegrity, "no document with id %s", id)
		}
		if !r.IsCollection() {
			return Record{}, errors.New(errors.ErrCodeConfig, "site root %s must be a folder, got %s", id, r.Type)
		}
		return r, nil
	}

	roots := matching(records.Children(ParentRoot), spec, TypeCollection)
	if len(roots) != 1 {
		return Record{}, errors.New(errors.ErrCodeConfig,
			"expected exactly one root-level folder named %q, found %d", spec, len(roots))
	}
	return roots[0], nil
}

func rootDocument(records *Collection, root Record, name string) (Record, error) {
	docs := matching(records.Children(root.ID.String()), name, TypeDocument)
	switch len(docs) {
	case 1:
		return docs[0], nil
	case 0:
		return Record{}, errors.New(errors.ErrCodeConfig, "missing %q notebook in site root", name)
	default:
		return Record{}, errors.New(errors.ErrCodeConfig, "found %d %q notebooks in site root", len(docs), name)
	}
}

// mirror copies the subtree below folder into a Posts value. where is the
// slash-separated folder path used in error messages. visited holds the
// folders already on the walk; meeting one again is a source-integrity error.
func mirror(records *Collection, folder Record, where string, visited map[uuid.UUID]bool) (Posts, error) {
	if visited[folder.ID] {
		return Posts{}, errors.New(errors.ErrCodeSourceIntegrity, "folder %s (%q) is its own ancestor", folder.ID, where)
	}
	visited[folder.ID] = true

	posts := Posts{
		Documents: make(map[string]DocumentMeta),
		Folders:   make(map[string]Posts),
	}
	counts := make(map[string]int)

	for _, child := range records.Children(folder.ID.String()) {
		switch {
		case child.IsDocument():
			counts["d:"+child.Name]++
			posts.Documents[child.Name] = child.Meta()
		case child.IsCollection():
			counts["f:"+child.Name]++
			sub, err := mirror(records, child, path.Join(where, child.Name), visited)
			if err != nil {
				return Posts{}, err
			}
			posts.Folders[child.Name] = sub
		}
	}

	for _, key := range sortedKeys(counts) {
		if n := counts[key]; n > 1 {
			return Posts{}, errors.New(errors.ErrCodeConfig,
				"found %d entries named %q in folder %q", n, key[2:], where)
		}
	}
	return posts, nil
}

func matching(records []Record, name, typ string) []Record {
	var out []Record
	for _, r := range records {
		if r.Name == name && r.Type == typ {
			out = append(out, r)
		}
	}
	return out
}
