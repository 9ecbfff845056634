package hmr

// Virtual endpoints served by the router.
const (
	ClientPath = "/@wu/client.js"
	WSPath     = "/__wu_ws"
	SSEPath    = "/__wu_hmr"
)

// ClientScript is the hot-reload client injected into every HTML
// response. It prefers the WebSocket endpoint and falls back to SSE,
// refreshes tagged style elements on css-update, re-imports and
// re-mounts a single app on app-update, and reloads the page otherwise.
const ClientScript = `(function () {
  'use strict';

  function handle(msg) {
    var ev;
    try { ev = JSON.parse(msg); } catch (e) { return; }

    switch (ev.type) {
      case 'connected':
        console.log('[wu] hmr connected');
        break;

      case 'css-update':
        var cssApp = (window.__wu_apps || []).find(function (a) { return a.name === ev.app; });
        var cssDir = cssApp ? cssApp.dir : ev.app;
        document.querySelectorAll('style[data-wu-css]').forEach(function (el) {
          var path = el.getAttribute('data-wu-css');
          if (path.indexOf('/' + cssDir + '/') === -1) return;
          fetch(path + '?import&t=' + Date.now())
            .then(function (r) { return r.text(); })
            .then(function (js) {
              var m = js.match(/style\.textContent = (".*");/);
              if (m) el.textContent = JSON.parse(m[1]);
            });
        });
        break;

      case 'app-update': {
        var apps = window.__wu_apps || [];
        var app = apps.find(function (a) { return a.name === ev.app; });
        if (!app) { location.reload(); return; }
        var entry = '/' + ev.dir + '/src/main.' + app.ext + '?t=' + Date.now();
        import(entry).then(function (mod) {
          var mount = window['__wu_mount_' + ev.app] || (mod && mod.mount);
          if (typeof mount === 'function') { mount(); }
          else { location.reload(); }
        }).catch(function () { location.reload(); });
        break;
      }

      case 'full-reload':
        location.reload();
        break;
    }
  }

  function connectSSE() {
    var es = new EventSource('/__wu_hmr');
    es.onmessage = function (e) { handle(e.data); };
    es.onerror = function () {
      es.close();
      setTimeout(connectSSE, 2000);
    };
  }

  function connectWS() {
    var proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
    var ws;
    try {
      ws = new WebSocket(proto + '//' + location.host + '/__wu_ws');
    } catch (e) {
      connectSSE();
      return;
    }
    var opened = false;
    ws.onopen = function () { opened = true; };
    ws.onmessage = function (e) { handle(e.data); };
    ws.onclose = function () {
      if (!opened) { connectSSE(); return; }
      setTimeout(connectWS, 2000);
    };
    ws.onerror = function () { ws.close(); };
  }

  if (document.readyState === 'loading') {
    document.addEventListener('DOMContentLoaded', connectWS);
  } else {
    connectWS();
  }
})();
`
