package genome

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadFASTA parses coding sequences from FASTA input into a genome.
func ReadFASTA(r io.Reader) (*Genome, error) {
	g := New()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var id, description string
	var seq strings.Builder
	flush := func() error {
		if id == "" {
			return nil
		}
		if err := g.AddSequence(id, description, seq.String()); err != nil {
			return err
		}
		seq.Reset()
		return nil
	}
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ">") {
			if err := flush(); err != nil {
				return nil, err
			}
			header := strings.TrimPrefix(line, ">")
			fields := strings.Fields(header)
			id = fields[0]
			description = strings.TrimSpace(strings.TrimPrefix(header, id))
			continue
		}
		seq.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read fasta: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if g.Len() == 0 {
		return nil, DataError{Reason: "no sequences found"}
	}
	return g, nil
}

// LoadFASTA reads a genome from a FASTA file on disk.
func LoadFASTA(path string) (*Genome, error) {
	f, err := os.Open(path) // #nosec G304 -- caller-supplied data path
	if err != nil {
		return nil, fmt.Errorf("open fasta: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadFASTA(f)
}
