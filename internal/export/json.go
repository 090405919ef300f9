package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/0iy/schulportal-hessen-timetable-export/internal/model"
)

// RenderJSON serializes lessons as a pretty-printed UTF-8 array with a
// leading BOM, which keeps spreadsheet imports from mangling umlauts.
func RenderJSON(lessons []model.Lesson) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(bom)

	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(lessons); err != nil {
		return nil, fmt.Errorf("encode lessons: %w", err)
	}
	return buf.Bytes(), nil
}
