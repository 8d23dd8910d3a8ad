package steps

import (
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/devicelab-dev/terrain/pkg/templates"
)

var views = template.Must(template.New("").Parse(`
{{define "footer.html"}}<p class="footer">Test app</p>{{end}}
{{define "home.html"}}<html><head><title>Home</title></head><body>
<h1 id="welcome">Welcome home</h1>
{{template "footer.html" .}}
</body></html>{{end}}
{{define "login.html"}}<html><head><title>Sign in</title></head><body>
<h1 id="title">Sign in</h1>
{{if .Errors}}<ul class="errorlist">{{range .Errors}}<li>{{.}}</li>{{end}}</ul>{{end}}
<form method="post" action="/accounts/login/">
  <input id="id_username" name="username" type="text" value="{{.Username}}">
  <input id="id_password" name="password" type="password">
  <label for="id_remember">Remember me</label>
  <input id="id_remember" name="remember" type="checkbox">
  <button id="submit" type="submit">Sign in</button>
</form>
{{template "footer.html" .}}
</body></html>{{end}}
`))

type loginData struct {
	Username string
	Errors   []string
}

// newApp returns the application the step tests drive.
func newApp() http.Handler {
	r := chi.NewRouter()

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_ = templates.Execute(w, r, views, "home.html", nil)
	})
	r.Get("/accounts/login/", func(w http.ResponseWriter, r *http.Request) {
		_ = templates.Execute(w, r, views, "login.html", loginData{})
	})
	r.Post("/accounts/login/", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		data := loginData{Username: r.PostForm.Get("username")}
		if data.Username == "" {
			data.Errors = append(data.Errors, "Username: This field is required.")
		}
		if r.PostForm.Get("password") == "" {
			data.Errors = append(data.Errors, "Password: This field is required.")
		}
		if len(data.Errors) > 0 {
			_ = templates.Execute(w, r, views, "login.html", data)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: data.Username, Path: "/"})
		http.Redirect(w, r, "/", http.StatusFound)
	})
	r.Get("/accounts/logout/", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "", Path: "/", MaxAge: -1})
		http.Redirect(w, r, "/", http.StatusFound)
	})
	r.Get("/old-home/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusMovedPermanently)
	})
	r.Get("/to-login/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/accounts/login/", http.StatusFound)
	})

	return templates.Expose(r)
}
