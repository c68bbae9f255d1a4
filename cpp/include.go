package cpp

import (
	"io"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
)

type IncludeResult struct {
	// Path to open, as found in the search path.
	Path string
	// Directory of the search path entry the file was found in. Empty
	// for files found next to the includer or given as absolute paths.
	Dir string
}

type IncludeSearcher interface {
	// SearchQuoted is invoked when the preprocessor
	// encounters an include of the form #include "foo.h".
	SearchQuoted(requestingFile, headerPath string) (IncludeResult, bool)
	// SearchAngled is invoked when the preprocessor
	// encounters an include of the form #include <foo.h>.
	SearchAngled(headerPath string) (IncludeResult, bool)
	Open(path string) (io.ReadCloser, error)
}

const includeCacheSize = 512

// SearchPath resolves includes against ordered lists of directories, like
// a C compiler's -iquote, -I, -isystem and default system directories.
//
// Quoted includes look next to the including file, then in the quoted
// directories, then continue like angled includes. Angled includes look in
// the angled directories, then in the system directories.
type SearchPath struct {
	quoted  []string
	angled  []string
	system  []string
	noStd   bool
	stat    func(string) (os.FileInfo, error)
	entries *lru.Cache[string, IncludeResult]
}

func NewSearchPath() *SearchPath {
	entries, err := lru.New[string, IncludeResult](includeCacheSize)
	if err != nil {
		panic(err)
	}
	return &SearchPath{
		stat:    os.Stat,
		entries: entries,
	}
}

func (sp *SearchPath) AddQuoted(dirs ...string) *SearchPath {
	sp.quoted = append(sp.quoted, dirs...)
	return sp
}

func (sp *SearchPath) AddAngled(dirs ...string) *SearchPath {
	sp.angled = append(sp.angled, dirs...)
	return sp
}

func (sp *SearchPath) AddSystem(dirs ...string) *SearchPath {
	sp.system = append(sp.system, dirs...)
	return sp
}

// SetNoStdInc drops the system directories from the search.
func (sp *SearchPath) SetNoStdInc(on bool) *SearchPath {
	sp.noStd = on
	return sp
}

// Finish removes directories that do not exist and must be called once
// all directories have been added.
func (sp *SearchPath) Finish() *SearchPath {
	sp.quoted = sp.existing(sp.quoted)
	sp.angled = sp.existing(sp.angled)
	if sp.noStd {
		sp.system = nil
	}
	sp.system = sp.existing(sp.system)
	sp.entries.Purge()
	return sp
}

func (sp *SearchPath) existing(dirs []string) []string {
	var ret []string
	seen := make(map[string]bool)
	for _, d := range dirs {
		if seen[d] {
			continue
		}
		seen[d] = true
		if fi, err := sp.stat(d); err == nil && fi.IsDir() {
			ret = append(ret, d)
		}
	}
	return ret
}

// Dirs returns the directories searched for angled includes, in order.
func (sp *SearchPath) Dirs() []string {
	ret := append([]string(nil), sp.angled...)
	return append(ret, sp.system...)
}

func (sp *SearchPath) fileExists(path string) bool {
	fi, err := sp.stat(path)
	return err == nil && !fi.IsDir()
}

func (sp *SearchPath) search(key string, name string, lists ...[]string) (IncludeResult, bool) {
	if res, ok := sp.entries.Get(key); ok {
		return res, true
	}
	if filepath.IsAbs(name) {
		if sp.fileExists(name) {
			res := IncludeResult{Path: name}
			sp.entries.Add(key, res)
			return res, true
		}
		return IncludeResult{}, false
	}
	for _, dirs := range lists {
		for _, dir := range dirs {
			path := filepath.Join(dir, name)
			if sp.fileExists(path) {
				res := IncludeResult{Path: path, Dir: dir}
				sp.entries.Add(key, res)
				return res, true
			}
		}
	}
	return IncludeResult{}, false
}

func (sp *SearchPath) SearchQuoted(requestingFile, headerPath string) (IncludeResult, bool) {
	if !filepath.IsAbs(headerPath) {
		path := filepath.Join(filepath.Dir(requestingFile), headerPath)
		if sp.fileExists(path) {
			return IncludeResult{Path: path}, true
		}
	}
	return sp.search("\"\x00"+headerPath, headerPath, sp.quoted, sp.angled, sp.system)
}

func (sp *SearchPath) SearchAngled(headerPath string) (IncludeResult, bool) {
	return sp.search("<\x00"+headerPath, headerPath, sp.angled, sp.system)
}

func (sp *SearchPath) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}
