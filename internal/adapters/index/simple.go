package index

import (
	"bytes"
	"encoding/json"
	"net/url"
	"time"

	"go.trai.ch/sa/internal/core/domain"
	"go.trai.ch/zerr"
)

// SimpleJSON is the PEP 691 media type requested from indexes.
const SimpleJSON = "application/vnd.pypi.simple.v1+json"

// simplePage is a PEP 691 project page.
type simplePage struct {
	Meta struct {
		APIVersion string `json:"api-version"`
	} `json:"meta"`
	Name  string       `json:"name"`
	Files []simpleFile `json:"files"`
}

type simpleFile struct {
	Filename             string            `json:"filename"`
	URL                  string            `json:"url"`
	Hashes               map[string]string `json:"hashes"`
	RequiresPython       string            `json:"requires-python"`
	CoreMetadata         json.RawMessage   `json:"core-metadata"`
	DataDistInfoMetadata json.RawMessage   `json:"data-dist-info-metadata"`
	DistInfoMetadata     json.RawMessage   `json:"dist-info-metadata"`
	Yanked               json.RawMessage   `json:"yanked"`
	Size                 int64             `json:"size"`
	UploadTime           string            `json:"upload-time"`
}

// truthy reports whether a PEP 691 boolean-or-object field is set.
func truthy(raw json.RawMessage) bool {
	v := bytes.TrimSpace(raw)
	return len(v) > 0 && !bytes.Equal(v, []byte("false")) && !bytes.Equal(v, []byte("null"))
}

// coreMetadata reads the first set PEP 658 field. The field is either
// true or a hashes object for the metadata file.
func coreMetadata(fields ...json.RawMessage) (bool, domain.Digest) {
	for _, raw := range fields {
		if !truthy(raw) {
			continue
		}
		var hashes map[string]string
		if err := json.Unmarshal(raw, &hashes); err != nil {
			return true, ""
		}
		d, _ := domain.DigestFromHashes(hashes)
		return true, d
	}
	return false, ""
}

// parseSimplePage turns a project page into candidates in file order.
// Files that are not distributions of name, or carry no sha256, are skipped.
func parseSimplePage(data []byte, pageURL string, idx domain.Index, name domain.PackageName) ([]domain.Candidate, error) {
	var page simplePage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "decode simple API page"), "url", pageURL)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "parse page url"), "url", pageURL)
	}

	var cands []domain.Candidate
	byVersion := map[string]int{}
	for _, f := range page.Files {
		parsed, err := domain.ParseDistributionFilename(f.Filename)
		if err != nil || parsed.Name != name {
			continue
		}
		digest, ok := domain.DigestFromHashes(f.Hashes)
		if !ok {
			continue
		}
		ref, err := url.Parse(f.URL)
		if err != nil {
			continue
		}
		resolved := base.ResolveReference(ref)
		resolved.Fragment = ""

		dist := domain.Distribution{
			Kind:     parsed.Kind,
			Filename: f.Filename,
			URL:      resolved.String(),
			Index:    idx.URL,
			Size:     f.Size,
			Digest:   digest,
			Yanked:   truthy(f.Yanked),
			Wheel:    parsed.Wheel,
		}
		dist.CoreMetadata, dist.MetadataDigest = coreMetadata(f.CoreMetadata, f.DataDistInfoMetadata, f.DistInfoMetadata)
		if f.RequiresPython != "" {
			// Invalid requires-python values are ignored, as installers do.
			if spec, err := domain.ParseSpecifierSet(f.RequiresPython); err == nil {
				dist.RequiresPython = spec
			}
		}
		if f.UploadTime != "" {
			if ts, err := time.Parse(time.RFC3339Nano, f.UploadTime); err == nil {
				dist.UploadTime = ts.UTC()
			}
		}

		key := parsed.Version.String()
		i, seen := byVersion[key]
		if !seen {
			i = len(cands)
			byVersion[key] = i
			cands = append(cands, domain.Candidate{Name: name, Version: parsed.Version, Index: idx.URL})
		}
		cands[i].Distributions = append(cands[i].Distributions, dist)
	}
	return cands, nil
}
