package http

import (
	"html/template"
	"net/http"
	"os"
	"path/filepath"
)

// pageData is passed to the HTML templates.
type pageData struct {
	Version string
	APIBase string
}

// ServeMainApp serves the browser page from webDir/index.html.
func ServeMainApp(webDir, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		indexPath := filepath.Join(webDir, "index.html")
		if _, err := os.Stat(indexPath); os.IsNotExist(err) {
			http.Error(w, "Main application page not found", http.StatusNotFound)
			return
		}
		serveHTML(w, r, indexPath, pageData{Version: version, APIBase: "/api"})
	}
}

// StaticFiles serves webDir/static under prefix.
func StaticFiles(webDir, prefix string) http.Handler {
	return http.StripPrefix(prefix, http.FileServer(http.Dir(filepath.Join(webDir, "static"))))
}

// serveHTML serves an HTML file with proper headers
func serveHTML(w http.ResponseWriter, r *http.Request, filePath string, data pageData) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	tmpl, err := template.ParseFiles(filePath)
	if err != nil {
		http.Error(w, "Error loading page", http.StatusInternalServerError)
		return
	}
	if err := tmpl.Execute(w, data); err != nil {
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
		return
	}
}
