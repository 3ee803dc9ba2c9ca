package markdown

import "testing"

func testConverter() *Converter {
	return NewConverter("https://example.atlassian.net", nil)
}

func TestReplaceAttachmentLinks(t *testing.T) {
	t.Parallel()

	c := testConverter()
	atts := sampleAttachments()

	tcs := []struct {
		name string
		in   string
		want string
	}{
		{
			"absolute image url",
			"![shot](https://example.atlassian.net/secure/attachment/10001/screenshot.png)",
			"![shot](screenshot.png)",
		},
		{
			"relative link with encoded filename",
			"[report final.pdf](/secure/attachment/10002/report%20final.pdf)",
			"[report final.pdf](report%20final_1.pdf)",
		},
		{
			"rest content url by id",
			"![x](https://example.atlassian.net/rest/api/3/attachment/content/10001)",
			"![x](screenshot.png)",
		},
		{
			"rest thumbnail url with query",
			"[thumb](/rest/api/2/attachment/thumbnail/10002?width=200)",
			"[thumb](report%20final_1.pdf)",
		},
		{
			"other domains untouched",
			"![x](https://other.atlassian.net/secure/attachment/10001/screenshot.png)",
			"![x](https://other.atlassian.net/secure/attachment/10001/screenshot.png)",
		},
		{
			"non-attachment links untouched",
			"[browse](https://example.atlassian.net/browse/PROJ-1)",
			"[browse](https://example.atlassian.net/browse/PROJ-1)",
		},
		{
			"fallback resolves via link text",
			"[screenshot.png](/secure/attachment/10001/renamed%20thing.png)",
			"[screenshot.png](screenshot.png)",
		},
		{
			"unknown secure attachment left alone",
			"![x](/secure/attachment/55555/mystery.bin)",
			"![x](/secure/attachment/55555/mystery.bin)",
		},
		{
			"unknown rest url rewritten via alt text",
			"![photo.png](https://example.atlassian.net/rest/api/3/attachment/content/99999)",
			"![photo.png](photo.png)",
		},
		{
			"unknown rest url rewritten via link text",
			"[notes v2.txt](/rest/api/2/attachment/thumbnail/88888?width=100)",
			"[notes v2.txt](notes%20v2.txt)",
		},
		{
			"rest url with known filename resolves to local name",
			"![report final.pdf](/rest/api/3/attachment/content/77777)",
			"![report final.pdf](report%20final_1.pdf)",
		},
		{
			"rest url with empty alt left alone",
			"![](/rest/api/3/attachment/content/66666)",
			"![](/rest/api/3/attachment/content/66666)",
		},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := c.ReplaceAttachmentLinks(tc.in, atts); got != tc.want {
				t.Errorf("got  %q\nwant %q", got, tc.want)
			}
		})
	}
}

func TestReplaceAttachmentLinksIdempotent(t *testing.T) {
	t.Parallel()

	c := testConverter()
	atts := sampleAttachments()

	in := "![shot](https://example.atlassian.net/secure/attachment/10001/screenshot.png)\n" +
		"[report](/secure/attachment/10002/report%20final.pdf)"
	once := c.ReplaceAttachmentLinks(in, atts)
	twice := c.ReplaceAttachmentLinks(once, atts)
	if once != twice {
		t.Errorf("second pass changed output:\nonce:  %q\ntwice: %q", once, twice)
	}
}

func TestReplaceAttachmentLinksNoAttachments(t *testing.T) {
	t.Parallel()

	c := testConverter()

	// Secure URLs need a resolvable attachment; REST URLs rewrite from the
	// alt text alone.
	in := "![x](/secure/attachment/1/a.png)"
	if got := c.ReplaceAttachmentLinks(in, nil); got != in {
		t.Errorf("secure link changed with no attachments: %q", got)
	}

	in = "![diagram.png](/rest/api/3/attachment/content/42)"
	if got := c.ReplaceAttachmentLinks(in, nil); got != "![diagram.png](diagram.png)" {
		t.Errorf("rest link not rewritten: %q", got)
	}
}
