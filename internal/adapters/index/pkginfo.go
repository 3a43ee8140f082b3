package index

import (
	"bufio"
	"bytes"
	"net/textproto"

	"go.trai.ch/sa/internal/core/domain"
	"go.trai.ch/zerr"
)

// parseRequiresDist reads the Requires-Dist fields of a core metadata
// header block.
func parseRequiresDist(headers []byte) ([]domain.Requirement, error) {
	trimmed := bytes.TrimRight(headers, "\n")
	block := make([]byte, 0, len(trimmed)+2)
	block = append(append(block, trimmed...), '\n', '\n')
	tp := textproto.NewReader(bufio.NewReader(bytes.NewReader(block)))
	fields, err := tp.ReadMIMEHeader()
	if err != nil {
		return nil, zerr.Wrap(err, "parse core metadata")
	}

	values := fields.Values("Requires-Dist")
	reqs := make([]domain.Requirement, 0, len(values))
	for _, v := range values {
		r, err := domain.ParseRequirement(v)
		if err != nil {
			return nil, zerr.With(err, "requires_dist", v)
		}
		reqs = append(reqs, r)
	}
	return reqs, nil
}
