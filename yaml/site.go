// Package yaml loads site profiles from YAML documents.
package yaml

import (
	"bytes"
	"embed"
	"errors"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/fwojciec/contestcrawl"
	"gopkg.in/yaml.v3"
)

// DefaultSiteName is the profile used when none is configured.
const DefaultSiteName = "linkareer"

//go:embed sites/*.yaml
var sites embed.FS

// ParseSite decodes and validates a profile. Unknown keys are rejected.
func ParseSite(data []byte) (*contestcrawl.Site, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var site contestcrawl.Site
	if err := dec.Decode(&site); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, contestcrawl.Errorf(contestcrawl.EINVALID, "empty site profile")
		}
		return nil, contestcrawl.WrapErrorf(err, contestcrawl.EINVALID, "decoding site profile")
	}
	if err := site.Validate(); err != nil {
		return nil, err
	}
	return &site, nil
}

// LoadSite reads a profile from a file.
func LoadSite(filename string) (*contestcrawl.Site, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, contestcrawl.WrapErrorf(err, contestcrawl.ENOTFOUND, "site profile %s", filename)
		}
		return nil, contestcrawl.WrapErrorf(err, contestcrawl.ECONFIG, "reading site profile %s", filename)
	}
	return ParseSite(data)
}

// BuiltinSite returns the embedded profile called name.
func BuiltinSite(name string) (*contestcrawl.Site, error) {
	data, err := sites.ReadFile(path.Join("sites", name+".yaml"))
	if err != nil {
		return nil, contestcrawl.Errorf(contestcrawl.ENOTFOUND, "no built-in site %q", name)
	}
	return ParseSite(data)
}

// DefaultSite returns the embedded linkareer profile.
func DefaultSite() *contestcrawl.Site {
	site, err := BuiltinSite(DefaultSiteName)
	if err != nil {
		panic(err)
	}
	return site
}

// BuiltinSites returns the names of the embedded profiles in sorted order.
func BuiltinSites() []string {
	entries, _ := sites.ReadDir("sites")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Resolve returns the profile named by ref: a built-in name, or otherwise
// a path to a YAML file. An empty ref selects the default profile.
func Resolve(ref string) (*contestcrawl.Site, error) {
	if ref == "" {
		return DefaultSite(), nil
	}
	if !strings.ContainsAny(ref, `/\`) && !strings.HasSuffix(ref, ".yaml") && !strings.HasSuffix(ref, ".yml") {
		return BuiltinSite(ref)
	}
	return LoadSite(ref)
}

// MarshalSite encodes a profile as YAML.
func MarshalSite(site *contestcrawl.Site) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(site); err != nil {
		return nil, contestcrawl.WrapErrorf(err, contestcrawl.EINTERNAL, "encoding site profile")
	}
	if err := enc.Close(); err != nil {
		return nil, contestcrawl.WrapErrorf(err, contestcrawl.EINTERNAL, "encoding site profile")
	}
	return buf.Bytes(), nil
}
