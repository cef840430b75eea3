package internal

import (
	"encoding/xml"
	"io"
	"os"
	"strings"
	"time"
)

// XMP namespace URLs as written by Adobe tools and Apple Photos exports.
const (
	nsXMP       = "http://ns.adobe.com/xap/1.0/"
	nsEXIF      = "http://ns.adobe.com/exif/1.0/"
	nsPhotoshop = "http://ns.adobe.com/photoshop/1.0/"
	nsDC        = "http://purl.org/dc/elements/1.1/"
)

// Probe order: the first non-empty field wins.
var xmpDateFields = []xml.Name{
	{Space: nsPhotoshop, Local: "DateCreated"},
	{Space: nsXMP, Local: "CreateDate"},
	{Space: nsEXIF, Local: "DateTimeOriginal"},
	{Space: nsEXIF, Local: "DateTimeDigitized"},
	{Space: nsDC, Local: "date"},
	{Space: nsXMP, Local: "ModifyDate"},
}

// ExtractXMPDate reads a creation date from an XMP sidecar. Date fields may
// appear either as child elements or as attributes on rdf:Description, so
// both forms are collected before the priority order is applied. A zero time
// with nil error means no usable date field was present.
func ExtractXMPDate(xmpPath string) (time.Time, error) {
	f, err := os.Open(xmpPath)
	if err != nil {
		return time.Time{}, err
	}
	defer f.Close()

	fields, err := collectXMPFields(f)
	if err != nil {
		return time.Time{}, err
	}

	for _, name := range xmpDateFields {
		val, ok := fields[name]
		if !ok || val == "" {
			continue
		}
		if t, err := ParseXMPDate(val); err == nil {
			return t, nil
		}
	}
	return time.Time{}, nil
}

func collectXMPFields(r io.Reader) (map[xml.Name]string, error) {
	fields := make(map[xml.Name]string)
	dec := xml.NewDecoder(r)
	var current xml.Name
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			current = t.Name
			for _, attr := range t.Attr {
				if _, seen := fields[attr.Name]; !seen && attr.Value != "" {
					fields[attr.Name] = attr.Value
				}
			}
		case xml.CharData:
			text := strings.TrimSpace(string(t))
			if text == "" || current.Local == "" {
				continue
			}
			if _, seen := fields[current]; !seen {
				fields[current] = text
			}
		case xml.EndElement:
			current = xml.Name{}
		}
	}
	return fields, nil
}

// ParseXMPDate accepts ISO-8601 with optional zone and fractional seconds,
// then a few looser layouts. Timezone-less values are assumed UTC.
func ParseXMPDate(dateStr string) (time.Time, error) {
	zoned := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.000Z",
	}
	for _, layout := range zoned {
		if t, err := time.Parse(layout, dateStr); err == nil {
			return t.UTC(), nil
		}
	}

	naive := []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
		"2006-01",
		"2006",
	}
	for _, layout := range naive {
		if t, err := time.ParseInLocation(layout, dateStr, time.UTC); err == nil {
			return t, nil
		}
	}
	return ParseExifDate(dateStr)
}
