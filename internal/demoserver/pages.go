package demoserver

// PageVersion is one version of a page: its HTML, content type and extra
// response headers.
type PageVersion struct {
	HTML        string
	ContentType string
	Headers     map[string]string
}

// PageDefinition holds all versions of a single page.
type PageDefinition struct {
	Path        string
	Description string
	Versions    map[int]PageVersion
}

// noCache keeps browsers and proxies from masking version switches.
var noCache = map[string]string{"Cache-Control": "no-store"}

// GetAllPages returns the demo page definitions. Every page references
// static assets (stylesheet, script, images, a web font) so asset
// downloads have something to collect, and every version differs in
// visible content so change detection has something to find.
func GetAllPages() []PageDefinition {
	return []PageDefinition{
		getHomePage(),
		getNewsPage(),
		getPricingPage(),
		getStatusPage(),
	}
}

func getHomePage() PageDefinition {
	return PageDefinition{
		Path:        "/",
		Description: "Home page; v2 adds a promo banner and image, v3 rewrites the headline",
		Versions: map[int]PageVersion{
			1: {
				HTML: `<!DOCTYPE html>
<html>
<head>
    <title>Acme Widgets</title>
    <link rel="stylesheet" href="/static/site.css">
    <link rel="preload" href="/static/fonts/inter.woff2" as="font" type="font/woff2" crossorigin>
    <script src="/static/app.js"></script>
</head>
<body>
    <img src="/static/logo.png" alt="Acme Widgets">
    <h1>Acme Widgets</h1>
    <nav><a href="/">Home</a> | <a href="/news">News</a> | <a href="/pricing">Pricing</a> | <a href="/status">Status</a></nav>
    <p>Quality widgets since 1999.</p>
</body>
</html>`,
				ContentType: "text/html",
				Headers:     noCache,
			},
			2: {
				HTML: `<!DOCTYPE html>
<html>
<head>
    <title>Acme Widgets</title>
    <link rel="stylesheet" href="/static/site.css">
    <link rel="preload" href="/static/fonts/inter.woff2" as="font" type="font/woff2" crossorigin>
    <script src="/static/app.js"></script>
</head>
<body>
    <img src="/static/logo.png" alt="Acme Widgets">
    <h1>Acme Widgets</h1>
    <nav><a href="/">Home</a> | <a href="/news">News</a> | <a href="/pricing">Pricing</a> | <a href="/status">Status</a></nav>
    <div class="banner"><img src="/static/promo.png" alt="Sale"> Summer sale: 20% off all widgets!</div>
    <p>Quality widgets since 1999.</p>
</body>
</html>`,
				ContentType: "text/html",
				Headers:     noCache,
			},
			3: {
				HTML: `<!DOCTYPE html>
<html>
<head>
    <title>Acme Widgets - Now Gadgets Too</title>
    <link rel="stylesheet" href="/static/site.css">
    <link rel="preload" href="/static/fonts/inter.woff2" as="font" type="font/woff2" crossorigin>
    <script src="/static/app.js"></script>
</head>
<body>
    <img src="/static/logo.png" alt="Acme">
    <h1>Acme Widgets and Gadgets</h1>
    <nav><a href="/">Home</a> | <a href="/news">News</a> | <a href="/pricing">Pricing</a> | <a href="/status">Status</a></nav>
    <p>Quality widgets and gadgets since 1999.</p>
</body>
</html>`,
				ContentType: "text/html",
				Headers:     noCache,
			},
		},
	}
}

func getNewsPage() PageDefinition {
	return PageDefinition{
		Path:        "/news",
		Description: "News feed; v2 publishes a new article",
		Versions: map[int]PageVersion{
			1: {
				HTML: `<!DOCTYPE html>
<html>
<head>
    <title>Acme News</title>
    <link rel="stylesheet" href="/static/site.css">
</head>
<body>
    <h1>News</h1>
    <ul>
        <li>2026-07-02: Widget v4 ships with improved bearings.</li>
        <li>2026-06-15: Acme opens a second factory.</li>
    </ul>
</body>
</html>`,
				ContentType: "text/html",
				Headers:     noCache,
			},
			2: {
				HTML: `<!DOCTYPE html>
<html>
<head>
    <title>Acme News</title>
    <link rel="stylesheet" href="/static/site.css">
</head>
<body>
    <h1>News</h1>
    <ul>
        <li>2026-08-20: Acme acquires Gadget Corp.</li>
        <li>2026-07-02: Widget v4 ships with improved bearings.</li>
        <li>2026-06-15: Acme opens a second factory.</li>
    </ul>
</body>
</html>`,
				ContentType: "text/html",
				Headers:     noCache,
			},
		},
	}
}

func getPricingPage() PageDefinition {
	return PageDefinition{
		Path:        "/pricing",
		Description: "Pricing table; v2 raises prices and adds a tier",
		Versions: map[int]PageVersion{
			1: {
				HTML: `<!DOCTYPE html>
<html>
<head>
    <title>Acme Pricing</title>
    <link rel="stylesheet" href="/static/site.css">
    <script src="/static/pricing.js"></script>
</head>
<body>
    <h1>Pricing</h1>
    <table>
        <tr><th>Plan</th><th>Price</th></tr>
        <tr><td>Starter</td><td>$19/mo</td></tr>
        <tr><td>Business</td><td>$49/mo</td></tr>
    </table>
</body>
</html>`,
				ContentType: "text/html",
				Headers:     noCache,
			},
			2: {
				HTML: `<!DOCTYPE html>
<html>
<head>
    <title>Acme Pricing</title>
    <link rel="stylesheet" href="/static/site.css">
    <script src="/static/pricing.js"></script>
</head>
<body>
    <h1>Pricing</h1>
    <table>
        <tr><th>Plan</th><th>Price</th></tr>
        <tr><td>Starter</td><td>$24/mo</td></tr>
        <tr><td>Business</td><td>$59/mo</td></tr>
        <tr><td>Enterprise</td><td>Contact us</td></tr>
    </table>
</body>
</html>`,
				ContentType: "text/html",
				Headers:     noCache,
			},
		},
	}
}

func getStatusPage() PageDefinition {
	return PageDefinition{
		Path:        "/status",
		Description: "Service status; v2 reports a degraded API",
		Versions: map[int]PageVersion{
			1: {
				HTML: `<!DOCTYPE html>
<html>
<head>
    <title>Acme Status</title>
    <link rel="stylesheet" href="/static/site.css">
</head>
<body>
    <h1>Service Status</h1>
    <p class="status-ok">All systems operational.</p>
</body>
</html>`,
				ContentType: "text/html",
				Headers:     noCache,
			},
			2: {
				HTML: `<!DOCTYPE html>
<html>
<head>
    <title>Acme Status</title>
    <link rel="stylesheet" href="/static/site.css">
</head>
<body>
    <h1>Service Status</h1>
    <p class="status-warn">Partial outage: the API is degraded.</p>
</body>
</html>`,
				ContentType: "text/html",
				Headers:     noCache,
			},
		},
	}
}
