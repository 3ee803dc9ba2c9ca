package markdown

import "github.com/dt-pm-tools/jira-export/internal/jira"

// ADF tree builders shared across the package tests.

func adfDoc(children ...jira.ADFNode) *jira.ADFNode {
	return &jira.ADFNode{Type: "doc", Content: children}
}

func adfPara(children ...jira.ADFNode) jira.ADFNode {
	return jira.ADFNode{Type: "paragraph", Content: children}
}

func adfText(s string, marks ...jira.ADFMark) jira.ADFNode {
	return jira.ADFNode{Type: "text", Text: s, Marks: marks}
}

func adfNode(nodeType string, attrs map[string]any, children ...jira.ADFNode) jira.ADFNode {
	return jira.ADFNode{Type: nodeType, Attrs: attrs, Content: children}
}

func sampleAttachments() []Attachment {
	return []Attachment{
		{
			ID:               "10001",
			Filename:         "screenshot.png",
			OriginalFilename: "screenshot.png",
			MimeType:         "image/png",
		},
		{
			ID:               "10002",
			Filename:         "report final_1.pdf",
			OriginalFilename: "report final.pdf",
			MimeType:         "application/pdf",
		},
	}
}
