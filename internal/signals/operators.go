package signals

import "fmt"

// SiteQuery counts pages indexed under domain.
func SiteQuery(domain string) string { return "site:" + domain }

// MentionQuery counts pages mentioning domain, excluding the domain itself.
func MentionQuery(domain string) string { return fmt.Sprintf("%q -site:%s", domain, domain) }

// RelatedQuery lists sites the search engine considers related to domain.
func RelatedQuery(domain string) string { return "related:" + domain }

// PlatformQuery counts mentions of domain on a single platform.
func PlatformQuery(platform, domain string) string {
	return fmt.Sprintf("site:%s %q", platform, domain)
}

// NewsQuery counts news coverage of brand off the brand's own domain.
func NewsQuery(brand, domain string) string {
	return fmt.Sprintf("%q inurl:news -site:%s", brand, domain)
}

// DiscussionQuery counts forum and Q&A discussion of brand.
func DiscussionQuery(brand string) string {
	return fmt.Sprintf("%q (site:reddit.com OR site:quora.com)", brand)
}

// BrandedPagesQuery counts indexed pages of domain whose title carries brand.
func BrandedPagesQuery(domain, brand string) string {
	return fmt.Sprintf("site:%s intitle:%s", domain, brand)
}

// DocumentsQuery counts indexed PDF documents under domain.
func DocumentsQuery(domain string) string {
	return fmt.Sprintf("site:%s filetype:pdf", domain)
}

// PageQuery checks whether a specific page (host + path, no scheme) is indexed.
func PageQuery(hostPath string) string { return "site:" + hostPath }

// URLQuery counts pages citing the exact URL.
func URLQuery(url string) string { return fmt.Sprintf("%q", url) }
