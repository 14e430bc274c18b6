package reader

import (
	"errors"
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/vegasq/piiscrub/format"
)

// SchemaInfo represents metadata about a single column of a dataset.
//
// Only parquet sources carry physical and logical types; csv and json
// columns report a Type of "STRING" and "JSON" respectively.
type SchemaInfo struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	PhysicalType string `json:"physical_type,omitempty"`
	LogicalType  string `json:"logical_type,omitempty"`
	Required     bool   `json:"required"`
	Optional     bool   `json:"optional"`
	Repeated     bool   `json:"repeated"`
}

// ExtractSchemaInfo lists the columns of content in output order.
//
// For csv this reads the header line only and for json the first record
// only. Parquet columns come from the file schema, with nested fields
// named in dot notation (e.g., "address.street").
func ExtractSchemaInfo(content []byte, f format.Format) ([]SchemaInfo, error) {
	switch f {
	case format.Parquet:
		return parquetSchemaInfo(content)
	case format.CSV, format.JSON:
		br, err := NewBatchReader(content, f, 1)
		if err != nil {
			return nil, err
		}
		batch, err := br.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, nil
			}
			return nil, err
		}
		typ := "STRING"
		if f == format.JSON {
			typ = "JSON"
		}
		infos := make([]SchemaInfo, len(batch.Columns))
		for i, col := range batch.Columns {
			infos[i] = SchemaInfo{Name: col, Type: typ, Optional: true}
		}
		return infos, nil
	default:
		return nil, &format.UnsupportedFormatError{Format: string(f)}
	}
}

// ColumnNames returns just the names from ExtractSchemaInfo.
func ColumnNames(content []byte, f format.Format) ([]string, error) {
	infos, err := ExtractSchemaInfo(content, f)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	return names, nil
}

func parquetSchemaInfo(content []byte) ([]SchemaInfo, error) {
	pqFile, err := openParquet(content)
	if err != nil {
		return nil, err
	}

	var schemaInfos []SchemaInfo
	for _, field := range pqFile.Schema().Fields() {
		schemaInfos = append(schemaInfos, extractFieldInfo(field, "", false)...)
	}

	byName := make(map[string]SchemaInfo, len(schemaInfos))
	leaves := make([]string, len(schemaInfos))
	for i, info := range schemaInfos {
		byName[info.Name] = info
		leaves[i] = info.Name
	}
	ordered := make([]SchemaInfo, 0, len(schemaInfos))
	for _, name := range columnOrder(pqFile, leaves) {
		ordered = append(ordered, byName[name])
	}
	return ordered, nil
}

// extractFieldInfo recursively extracts schema information from a field,
// tracking whether any parent field is repeated. The prefix builds
// dot-notation names for nested fields.
func extractFieldInfo(field parquet.Field, prefix string, parentRepeated bool) []SchemaInfo {
	fieldName := field.Name()
	if prefix != "" {
		fieldName = prefix + "." + fieldName
	}

	isRepeated := parentRepeated || field.Repeated()

	// Groups only contribute their leaves
	if childFields := field.Fields(); len(childFields) > 0 {
		var infos []SchemaInfo
		for _, child := range childFields {
			infos = append(infos, extractFieldInfo(child, fieldName, isRepeated)...)
		}
		return infos
	}

	return []SchemaInfo{{
		Name:         fieldName,
		Type:         getUserFriendlyType(field),
		PhysicalType: getPhysicalType(field),
		LogicalType:  getLogicalType(field),
		Required:     field.Required(),
		Optional:     field.Optional(),
		Repeated:     isRepeated,
	}}
}

var physicalTypes = map[parquet.Kind]string{
	parquet.Boolean:           "BOOLEAN",
	parquet.Int32:             "INT32",
	parquet.Int64:             "INT64",
	parquet.Int96:             "INT96",
	parquet.Float:             "FLOAT",
	parquet.Double:            "DOUBLE",
	parquet.ByteArray:         "BYTE_ARRAY",
	parquet.FixedLenByteArray: "FIXED_LEN_BYTE_ARRAY",
}

func getPhysicalType(field parquet.Field) string {
	if field.Type() == nil {
		return "GROUP"
	}
	if name, ok := physicalTypes[field.Type().Kind()]; ok {
		return name
	}
	return "UNKNOWN"
}

func getLogicalType(field parquet.Field) string {
	if field.Type() == nil || field.Type().LogicalType() == nil {
		return ""
	}
	return field.Type().LogicalType().String()
}

// getUserFriendlyType collapses physical and logical types into the names
// shown by the detect command: the logical type when it is a well known
// one, the physical type otherwise (FLOAT and DOUBLE become FLOAT32 and
// FLOAT64).
func getUserFriendlyType(field parquet.Field) string {
	if field.Type() == nil {
		return "GROUP"
	}

	if lt := field.Type().LogicalType(); lt != nil {
		switch name := lt.String(); name {
		case "UTF8":
			return "STRING"
		case "STRING", "ENUM", "UUID", "DATE", "TIME", "TIMESTAMP", "DECIMAL", "JSON", "BSON":
			return name
		}
	}

	switch kind := field.Type().Kind(); kind {
	case parquet.Float:
		return "FLOAT32"
	case parquet.Double:
		return "FLOAT64"
	default:
		return getPhysicalType(field)
	}
}
