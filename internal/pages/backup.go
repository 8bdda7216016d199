package pages

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidBackup is returned when an import payload is not an object with a pages array.
var ErrInvalidBackup = eris.New("invalid backup format")

// Entries are only required to be objects; their fields are taken as-is.
const backupSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["pages"],
  "properties": {
    "pages": {
      "type": "array",
      "items": {"type": "object"}
    }
  }
}`

var compiledBackupSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(backupSchema))
})

// DecodeBackup validates raw JSON against the backup format and decodes it.
// Every validation failure matches ErrInvalidBackup.
func DecodeBackup(raw []byte) (*Backup, error) {
	schema, err := compiledBackupSchema()
	if err != nil {
		return nil, eris.Wrap(err, "compiling backup schema")
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, eris.Wrapf(ErrInvalidBackup, "parsing backup: %v", err)
	}

	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return nil, eris.Wrapf(ErrInvalidBackup, "validating backup: %s", strings.Join(problems, "; "))
	}

	var backup Backup
	if err := json.Unmarshal(raw, &backup); err != nil {
		return nil, eris.Wrapf(ErrInvalidBackup, "decoding backup: %v", err)
	}

	return &backup, nil
}

// EncodeBackup renders a backup as indented JSON suitable for DecodeBackup.
func EncodeBackup(backup *Backup) ([]byte, error) {
	if backup == nil {
		return nil, eris.New("backup is nil")
	}

	out := *backup
	if out.Pages == nil {
		out.Pages = []Page{}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "encoding backup")
	}

	return data, nil
}
