package httpx

// contentTypes maps a file extension (with leading dot) to its content type.
// Every JavaScript-family extension maps to text/javascript so the browser
// will evaluate transformed TypeScript and JSX as modules.
var contentTypes = map[string]string{
	".html": "text/html; charset=utf-8",
	".htm":  "text/html; charset=utf-8",
	".css":  "text/css; charset=utf-8",

	".js":  "text/javascript; charset=utf-8",
	".mjs": "text/javascript; charset=utf-8",
	".cjs": "text/javascript; charset=utf-8",
	".ts":  "text/javascript; charset=utf-8",
	".mts": "text/javascript; charset=utf-8",
	".jsx": "text/javascript; charset=utf-8",
	".tsx": "text/javascript; charset=utf-8",

	".json": "application/json; charset=utf-8",
	".map":  "application/json; charset=utf-8",
	".xml":  "application/xml",
	".txt":  "text/plain; charset=utf-8",
	".csv":  "text/csv; charset=utf-8",

	".svg":  "image/svg+xml",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".ico":  "image/x-icon",
	".avif": "image/avif",

	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".otf":   "font/otf",
	".eot":   "application/vnd.ms-fontobject",

	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".mp4":  "video/mp4",
	".webm": "video/webm",

	".wasm": "application/wasm",
	".pdf":  "application/pdf",
}

// ContentType returns the content type for a file extension (with leading
// dot). Unknown extensions fall back to application/octet-stream.
func ContentType(ext string) string {
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}
