package link

import (
	"html/template"
	"io"
	"strings"

	C "github.com/sagernet/sing-edge/constant"
)

type card struct {
	Title string
	ID    string
	URI   string
}

func newCard(link Link) card {
	name := strings.ToUpper(link.Type())
	id := link.Type()
	if link.Type() == C.TypeShadowsocks {
		name = "SHADOWSOCKS"
		id = "ss"
	}
	if link.TLS() {
		return card{name + " TLS", id + "_tls", link.String()}
	}
	return card{name + " NTLS", id + "_ntls", link.String()}
}

var pageTemplate = template.Must(template.New("link").Parse(`<!DOCTYPE html>
<html lang="en" data-theme="dark">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1.0" />
  <title>Account Configuration</title>
  <style>
    :root { --bg: #fff; --card: #fff; --text: #000; --linkbox: #e2e8f0; --copy: #0284c7; --copied: #16a34a; }
    [data-theme="dark"] { --bg: #0f172a; --card: #1e293b; --text: #f8fafc; --linkbox: #334155; --copy: #0ea5e9; --copied: #22c55e; }
    body { background: var(--bg); color: var(--text); font-family: 'Segoe UI', sans-serif; margin: 0; padding: 2rem; display: flex; flex-direction: column; align-items: center; }
    h1 { margin-bottom: 2rem; font-size: 2.5rem; text-align: center; color: #38bdf8; }
    .toggle { margin-bottom: 2rem; background: transparent; border: 1px solid var(--text); color: var(--text); border-radius: 0.375rem; cursor: pointer; }
    .card { background: var(--card); border-radius: 1rem; padding: 1.5rem; margin-bottom: 1.5rem; width: 100%; max-width: 700px; box-shadow: 0 4px 20px rgba(0,0,0,0.2); }
    .protocol { font-weight: bold; font-size: 1.2rem; margin-bottom: 0.75rem; color: #facc15; }
    .linkbox { background: var(--linkbox); padding: 0.75rem 1rem; border-radius: 0.5rem; font-size: 0.95rem; overflow-x: auto; word-break: break-all; }
    .copy { cursor: pointer; margin-top: 0.75rem; padding: 0.5rem 1rem; background: var(--copy); color: white; border: none; border-radius: 0.375rem; font-weight: bold; }
    .copied { background: var(--copied) !important; }
  </style>
</head>
<body>
  <button class="toggle" onclick="toggleTheme()">Theme</button>
  <h1>Account Configuration</h1>
{{- range .}}
  <div class="card">
    <div class="protocol">{{.Title}}</div>
    <div class="linkbox"><span id="{{.ID}}">{{.URI}}</span></div>
    <button class="copy" onclick="copyText('{{.ID}}', this)">Copy</button>
  </div>
{{- end}}
  <script>
    const root = document.documentElement;
    const savedTheme = localStorage.getItem("theme");
    if (savedTheme) {
      root.setAttribute("data-theme", savedTheme);
    } else if (!window.matchMedia("(prefers-color-scheme: dark)").matches) {
      root.setAttribute("data-theme", "light");
    }
    function toggleTheme() {
      const theme = root.getAttribute("data-theme") === "dark" ? "light" : "dark";
      root.setAttribute("data-theme", theme);
      localStorage.setItem("theme", theme);
    }
    function copyText(id, button) {
      navigator.clipboard.writeText(document.getElementById(id).textContent).then(() => {
        button.classList.add("copied");
        button.textContent = "Copied!";
        setTimeout(() => {
          button.classList.remove("copied");
          button.textContent = "Copy";
        }, 1500);
      });
    }
  </script>
</body>
</html>
`))

// WritePage renders the share page listing links.
func WritePage(writer io.Writer, links []Link) error {
	cards := make([]card, 0, len(links))
	for _, link := range links {
		cards = append(cards, newCard(link))
	}
	return pageTemplate.Execute(writer, cards)
}
