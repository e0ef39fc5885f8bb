package fixture

import "html/template"

var hostTemplate = template.Must(template.New("host").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>{{.Title}}</title>
    <style>
        html, body { margin: 0; height: 100%; }
        iframe { border: 0; width: 100%; height: 100%; }
    </style>
</head>
<body>
    <iframe title="streamlitApp" src="{{.FrameSrc}}"></iframe>
</body>
</html>
`))

// appTemplate renders either the starting screen or the loaded dashboard.
// The title is present in both, as in the real app.
var appTemplate = template.Must(template.New("app").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>{{.Title}}</title>
    <style>
        body { font-family: sans-serif; margin: 2rem; }
        [role="listbox"] { list-style: none; padding: 0; border: 1px solid #ccc; width: 24rem; }
        [role="option"] { padding: 0.25rem 0.5rem; cursor: pointer; }
        [role="option"]:hover { background: #eee; }
        table { border-collapse: collapse; }
        th, td { border: 1px solid #ddd; padding: 0.25rem 0.5rem; }
    </style>
</head>
<body>
<div data-testid="stApp">
    <h1 id="stock-dashboard-s-p500">{{.Title}}</h1>
{{- if .ColdStart}}
    <div data-testid="stAlert">App is starting......<br>Please wait while cache update is in process......<br>Refresh Page to check status</div>
{{- if .BackgroundStarted}}
    <div data-testid="stAlert">Background task started.</div>
{{- end}}
{{- else}}
    <h2 id="industry-data">{{.IndustryTitle}}</h2>
    <div data-testid="stSelectbox">
        <label for="sector-filter">Filter by Sector</label>
        <input id="sector-filter" type="text" readonly aria-label="Selected S&amp;P 500 Index. Filter by Sector" value="{{.Sector}}">
        <ul role="listbox" id="sector-options" hidden>
{{- range .Sectors}}
            <li role="option" data-sector="{{.}}">{{.}}</li>
{{- end}}
        </ul>
    </div>
    <table data-testid="stDataFrame">
        <thead>
            <tr>
{{- range .Columns}}
                <th role="columnheader">{{.}}</th>
{{- end}}
            </tr>
        </thead>
        <tbody>
{{- range $r, $row := .Rows}}
            <tr data-sector="{{$row.Sector}}">
{{- range $c, $cell := $row.Cells}}
                <td data-testid="glide-cell-{{$c}}-{{$r}}">{{$cell}}</td>
{{- end}}
            </tr>
{{- end}}
        </tbody>
    </table>
    <script>
    (function () {
        var input = document.getElementById("sector-filter");
        var list = document.getElementById("sector-options");
        input.addEventListener("click", function () { list.hidden = false; });
        list.querySelectorAll('[role="option"]').forEach(function (opt) {
            opt.addEventListener("click", function () {
                var sector = opt.dataset.sector;
                input.value = sector;
                list.hidden = true;
                document.querySelectorAll("tbody tr").forEach(function (tr) {
                    if (tr.dataset.sector !== sector) { tr.remove(); }
                });
            });
        });
    })();
    </script>
{{- end}}
</div>
</body>
</html>
`))
