package biz

import (
	"mime"
	"path/filepath"
	"strings"
)

var (
	csvMIMETypes = map[string]struct{}{
		"text/csv":                    {},
		"text/x-csv":                  {},
		"application/csv":             {},
		"application/x-csv":           {},
		"text/comma-separated-values": {},
	}

	spreadsheetMIMETypes = map[string]struct{}{
		"application/vnd.ms-excel":                                          {},
		"application/vnd.ms-excel.sheet.macroenabled.12":                    {},
		"application/vnd.ms-excel.sheet.binary.macroenabled.12":             {},
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": {},
		"application/vnd.oasis.opendocument.spreadsheet":                    {},
	}

	wordMIMETypes = map[string]struct{}{
		"application/msword": {},
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
		"application/vnd.ms-word.document.macroenabled.12":                        {},
		"application/vnd.oasis.opendocument.text":                                 {},
		"application/rtf": {},
	}

	typeByExt = map[string]FileType{
		".pdf":  FileTypePDF,
		".xls":  FileTypeExcel,
		".xlsx": FileTypeExcel,
		".xlsm": FileTypeExcel,
		".ods":  FileTypeExcel,
		".csv":  FileTypeCSV,
		".doc":  FileTypeDocx,
		".docx": FileTypeDocx,
		".odt":  FileTypeDocx,
	}

	extByType = map[FileType]string{
		FileTypePDF:   ".pdf",
		FileTypeExcel: ".xlsx",
		FileTypeCSV:   ".csv",
		FileTypeDocx:  ".docx",
	}
)

// ClassifyContentType 按声明的 MIME 类型推导文件类型。
// 浏览器对未知文件常发送 application/octet-stream，此时退回到文件扩展名。
func ClassifyContentType(contentType, fileName string) FileType {
	mediaType := parseMediaType(contentType)
	if mediaType == "" || mediaType == "application/octet-stream" {
		if t, ok := typeByExt[strings.ToLower(filepath.Ext(fileName))]; ok {
			return t
		}
		return FileTypeOther
	}
	return classifyMediaType(mediaType)
}

func classifyMediaType(mediaType string) FileType {
	if mediaType == "application/pdf" {
		return FileTypePDF
	}
	if _, ok := csvMIMETypes[mediaType]; ok {
		return FileTypeCSV
	}
	if _, ok := spreadsheetMIMETypes[mediaType]; ok || strings.Contains(mediaType, "spreadsheet") {
		return FileTypeExcel
	}
	if _, ok := wordMIMETypes[mediaType]; ok || strings.Contains(mediaType, "wordprocessing") {
		return FileTypeDocx
	}
	return FileTypeOther
}

func parseMediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}

// objectExt 对象 key 的扩展名：优先原文件名，否则按类型补全
func objectExt(fileName string, fileType FileType) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext != "" && len(ext) <= 8 && !strings.ContainsAny(ext, `/\ `) {
		return ext
	}
	return extByType[fileType]
}
