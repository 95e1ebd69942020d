package inject

// JS fragments embedded into the assembled payload. Each fragment is
// base64-encoded at assembly time so its syntax never leaks into the
// surrounding skeleton. Placeholder tokens are substituted before encoding.

// gmShim is the Tampermonkey compatibility layer. It runs in the page's main
// world; GM_xmlhttpRequest and GM_openInTab hop back to the isolated context
// through custom events because only that context can reach the host bridge.
const gmShim = `
window.unsafeWindow = window;
window.GM_info = {
  script: { name: 'GeoGuessr Desktop', version: '1.0' },
  scriptHandler: 'GeoGuessr Desktop',
  version: '1.0'
};
window.GM_getValue = function(key, defaultValue) {
  try {
    var value = localStorage.getItem('gm_' + key);
    return value !== null ? JSON.parse(value) : defaultValue;
  } catch(e) {
    console.warn('[GM_getValue] Error:', e);
    return defaultValue;
  }
};
window.GM_setValue = function(key, value) {
  try {
    localStorage.setItem('gm_' + key, JSON.stringify(value));
  } catch(e) {
    console.warn('[GM_setValue] Error:', e);
  }
};
window.GM_deleteValue = function(key) {
  try {
    localStorage.removeItem('gm_' + key);
  } catch(e) {
    console.warn('[GM_deleteValue] Error:', e);
  }
};
window.GM_listValues = function() {
  var keys = [];
  try {
    for (var i = 0; i < localStorage.length; i++) {
      var key = localStorage.key(i);
      if (key.indexOf('gm_') === 0) keys.push(key.substring(3));
    }
  } catch(e) {
    console.warn('[GM_listValues] Error:', e);
  }
  return keys;
};
window.GM_addStyle = function(css) {
  var style = document.createElement('style');
  style.textContent = css;
  (document.head || document.documentElement).appendChild(style);
};
window.GM_xmlhttpRequest = function(details) {
  var requestId = 'gm_xhr_' + Date.now() + '_' + Math.random().toString(36).substr(2, 9);
  var responseHandler = function(event) {
    if (event.detail && event.detail.requestId === requestId) {
      window.removeEventListener('gm_xhr_response', responseHandler);
      if (event.detail.error) {
        console.error('[GM_xmlhttpRequest] Error:', event.detail.error);
        if (details.onerror) details.onerror(event.detail.error);
      } else if (details.onload) {
        details.onload({
          responseText: event.detail.responseText,
          status: event.detail.status,
          statusText: event.detail.statusText,
          responseHeaders: event.detail.responseHeaders
        });
      }
    }
  };
  window.addEventListener('gm_xhr_response', responseHandler);
  window.dispatchEvent(new CustomEvent('gm_xhr_request', {
    detail: {
      requestId: requestId,
      url: details.url,
      method: details.method || 'GET',
      headers: details.headers || null,
      data: details.data || null
    }
  }));
};
window.GM_openInTab = function(url, options) {
  window.dispatchEvent(new CustomEvent('gm_open_external', { detail: { url: url } }));
};
var unsafeWindow = window.unsafeWindow;
var GM_info = window.GM_info;
var GM_getValue = window.GM_getValue;
var GM_setValue = window.GM_setValue;
var GM_deleteValue = window.GM_deleteValue;
var GM_listValues = window.GM_listValues;
var GM_addStyle = window.GM_addStyle;
var GM_xmlhttpRequest = window.GM_xmlhttpRequest;
var GM_openInTab = window.GM_openInTab;
console.log('[GeoGuessr Desktop] Tampermonkey API compatibility loaded');
`

// titlebarChrome draws the custom titlebar and the settings panel. The
// scriptsJSONToken placeholder is replaced with the current script list so
// the panel renders without a round trip. Panel actions go through the
// generic invoke bridge; window buttons post window-control messages.
const titlebarChrome = `(function() {
  var titlebar = document.createElement('div');
  titlebar.id = 'gg-desktop-titlebar';
  titlebar.innerHTML =
    '<div class="gg-titlebar-title">GeoGuessr Desktop</div>' +
    '<div class="gg-titlebar-controls">' +
    '<button id="gg-settings-btn" title="Settings">&#9881;</button>' +
    '<button id="gg-minimize-btn" title="Minimize">&#8211;</button>' +
    '<button id="gg-maximize-btn" title="Maximize">&#9633;</button>' +
    '<button id="gg-close-btn" title="Close" class="gg-close">&#10005;</button>' +
    '</div>';

  var settingsPanel = document.createElement('div');
  settingsPanel.id = 'gg-settings-panel';
  settingsPanel.style.display = 'none';
  settingsPanel.innerHTML =
    '<div class="gg-settings-header">Scripts</div>' +
    '<div class="gg-settings-disclaimer">Scripts run at your own risk. We are not responsible for any issues caused by third-party scripts.</div>' +
    '<div id="gg-scripts-list"></div>' +
    '<div class="gg-settings-add">' +
    '<input type="text" id="gg-add-url" placeholder="Script URL (https://...)" />' +
    '<button id="gg-add-btn">Add</button>' +
    '</div>' +
    '<div class="gg-settings-actions"><button id="gg-apply-btn" disabled>Apply &amp; Reload</button></div>' +
    '<div id="gg-settings-status"></div>';

  var style = document.createElement('style');
  style.textContent = '\
    #gg-desktop-titlebar { position: fixed; top: 0; left: 0; right: 0; height: 36px;\
      background: linear-gradient(180deg, #1a1a2e 0%, #16162a 100%); display: flex;\
      align-items: center; justify-content: space-between; padding: 0 8px;\
      z-index: 999999; user-select: none; border-bottom: 1px solid #2a2a4a; }\
    .gg-titlebar-title { color: #e0e0e0; font-size: 13px; font-weight: 500; padding-left: 8px; }\
    .gg-titlebar-controls { display: flex; gap: 2px; }\
    .gg-titlebar-controls button { width: 36px; height: 28px; border: none; background: transparent;\
      color: #b0b0b0; cursor: pointer; border-radius: 4px; }\
    .gg-titlebar-controls button:hover { background: rgba(255,255,255,0.1); color: #fff; }\
    .gg-titlebar-controls button.gg-close:hover { background: #e81123; color: #fff; }\
    #gg-settings-panel { position: fixed; top: 40px; right: 8px; width: 320px;\
      max-height: calc(100vh - 60px); background: #1a1a2e; border: 1px solid #2a2a4a;\
      border-radius: 8px; z-index: 999998; box-shadow: 0 8px 32px rgba(0,0,0,0.4);\
      overflow: hidden; font-family: -apple-system, BlinkMacSystemFont, sans-serif; }\
    .gg-settings-header { padding: 12px 16px; font-size: 14px; font-weight: 600; color: #fff;\
      background: #252542; border-bottom: 1px solid #2a2a4a; }\
    .gg-settings-disclaimer { padding: 8px 16px; font-size: 11px; color: #b0a000;\
      background: rgba(176,160,0,0.1); border-bottom: 1px solid #2a2a4a; text-align: center; }\
    #gg-scripts-list { max-height: 300px; overflow-y: auto; }\
    .gg-script-item { display: flex; align-items: center; padding: 10px 16px;\
      border-bottom: 1px solid #2a2a4a; gap: 12px; }\
    .gg-script-toggle { position: relative; width: 40px; height: 22px; background: #3a3a5a;\
      border-radius: 11px; cursor: pointer; flex-shrink: 0; }\
    .gg-script-toggle.enabled { background: #6c5ce7; }\
    .gg-script-info { flex: 1; min-width: 0; }\
    .gg-script-name { color: #e0e0e0; font-size: 13px; font-weight: 500; white-space: nowrap;\
      overflow: hidden; text-overflow: ellipsis; }\
    .gg-script-meta { color: #808080; font-size: 11px; margin-top: 2px; }\
    .gg-script-refresh, .gg-script-delete { padding: 4px 8px; background: transparent;\
      border: 1px solid #3a3a5a; border-radius: 4px; color: #b0b0b0; cursor: pointer; font-size: 12px; }\
    .gg-script-delete { border-color: #5a3a3a; color: #e05050; }\
    .gg-settings-add { display: flex; padding: 12px 16px; gap: 8px; border-top: 1px solid #2a2a4a; }\
    .gg-settings-add input { flex: 1; padding: 8px 12px; background: #252542;\
      border: 1px solid #3a3a5a; border-radius: 4px; color: #e0e0e0; font-size: 12px; }\
    .gg-settings-add button { padding: 8px 16px; background: #6c5ce7; border: none;\
      border-radius: 4px; color: #fff; font-size: 12px; cursor: pointer; }\
    .gg-settings-actions { padding: 12px 16px; border-top: 1px solid #2a2a4a; }\
    #gg-apply-btn { width: 100%; padding: 10px 16px; background: #00b894; border: none;\
      border-radius: 4px; color: #fff; font-size: 13px; cursor: pointer; }\
    #gg-apply-btn:disabled { background: #3a3a5a; color: #606080; cursor: not-allowed; }\
    #gg-settings-status { padding: 0 16px 12px; font-size: 12px; color: #808080; text-align: center; }\
    #gg-settings-status.error { color: #e05050; }\
    #gg-settings-status.success { color: #00b894; }\
    body { margin: 0 !important; padding-top: 36px !important; box-sizing: border-box !important; }\
  ';

  function appendElements() {
    if (document.body) {
      document.body.appendChild(titlebar);
      document.body.appendChild(settingsPanel);
      document.head.appendChild(style);
      initTitlebar();
    } else {
      requestAnimationFrame(appendElements);
    }
  }
  appendElements();

  function initTitlebar() {
    var scriptsData = __SCRIPTS_JSON__;
    var pendingChanges = {};
    var hasChanges = false;

    function newCorrelationId() {
      return 'req_' + Date.now() + '_' + Math.random().toString(36).substr(2, 9);
    }

    function invoke(operation, args, callback) {
      var correlationId = newCorrelationId();
      var handler = function(e) {
        if (e.data && e.data.kind === 'invoke-response' && e.data.correlationId === correlationId) {
          window.removeEventListener('message', handler);
          callback(e.data.error, e.data.result);
        }
      };
      window.addEventListener('message', handler);
      window.postMessage({ kind: 'invoke', correlationId: correlationId, operation: operation, args: args || {} }, '*');
    }

    function updateApplyButton() {
      var btn = document.getElementById('gg-apply-btn');
      if (btn) btn.disabled = !hasChanges;
    }

    function setStatus(text, cls) {
      var el = document.getElementById('gg-settings-status');
      el.textContent = text;
      el.className = cls || '';
    }

    function renderScripts() {
      var list = document.getElementById('gg-scripts-list');
      if (!list) return;
      if (scriptsData.length === 0) {
        list.innerHTML = '<div class="gg-no-scripts">No scripts installed.<br>Add a script URL below to get started.</div>';
        return;
      }
      list.innerHTML = scriptsData.map(function(script) {
        var isEnabled = pendingChanges[script.id] !== undefined ? pendingChanges[script.id] : script.enabled;
        return '<div class="gg-script-item" data-id="' + script.id + '">' +
          '<div class="gg-script-toggle ' + (isEnabled ? 'enabled' : '') + '" data-id="' + script.id + '"></div>' +
          '<div class="gg-script-info">' +
          '<div class="gg-script-name">' + script.name + '</div>' +
          '<div class="gg-script-meta">' + (script.version || 'No version') + (script.author ? ' by ' + script.author : '') + '</div>' +
          '</div>' +
          (script.url ? '<button class="gg-script-refresh" data-id="' + script.id + '">&#8635;</button>' : '') +
          '<button class="gg-script-delete" data-id="' + script.id + '">&#215;</button>' +
          '</div>';
      }).join('');

      list.querySelectorAll('.gg-script-toggle').forEach(function(toggle) {
        toggle.addEventListener('click', function() {
          var id = this.dataset.id;
          var currentState = this.classList.contains('enabled');
          this.classList.toggle('enabled');
          pendingChanges[id] = !currentState;
          hasChanges = true;
          updateApplyButton();
        });
      });

      list.querySelectorAll('.gg-script-refresh').forEach(function(btn) {
        btn.addEventListener('click', function() {
          var id = this.dataset.id;
          setStatus('Refreshing script...');
          invoke('refresh_script', { id: id }, function(error, result) {
            if (error) { setStatus('Error: ' + error, 'error'); return; }
            var idx = scriptsData.findIndex(function(s) { return s.id === id; });
            if (idx !== -1) scriptsData[idx] = result;
            renderScripts();
            hasChanges = true;
            updateApplyButton();
            setStatus('Script refreshed! Click Apply & Reload to use.', 'success');
          });
        });
      });

      list.querySelectorAll('.gg-script-delete').forEach(function(btn) {
        btn.addEventListener('click', function() {
          var id = this.dataset.id;
          if (!confirm('Delete this script?')) return;
          invoke('delete_script', { id: id }, function(error) {
            if (error) { setStatus('Error: ' + error, 'error'); return; }
            scriptsData = scriptsData.filter(function(s) { return s.id !== id; });
            delete pendingChanges[id];
            renderScripts();
            hasChanges = true;
            updateApplyButton();
            setStatus('Script deleted. Click Apply & Reload to update.', 'success');
          });
        });
      });
    }

    renderScripts();

    document.getElementById('gg-settings-btn').addEventListener('click', function(e) {
      e.stopPropagation();
      var panel = document.getElementById('gg-settings-panel');
      panel.style.display = panel.style.display === 'none' ? 'block' : 'none';
    });

    document.addEventListener('click', function(e) {
      var panel = document.getElementById('gg-settings-panel');
      var settingsBtn = document.getElementById('gg-settings-btn');
      if (panel.style.display !== 'none' && !panel.contains(e.target) && e.target !== settingsBtn) {
        panel.style.display = 'none';
      }
    });

    document.getElementById('gg-minimize-btn').addEventListener('click', function() {
      window.postMessage({ kind: 'window-control', action: 'minimize' }, '*');
    });
    document.getElementById('gg-maximize-btn').addEventListener('click', function() {
      window.postMessage({ kind: 'window-control', action: 'maximize' }, '*');
    });
    document.getElementById('gg-close-btn').addEventListener('click', function() {
      window.postMessage({ kind: 'window-control', action: 'close' }, '*');
    });

    document.getElementById('gg-add-btn').addEventListener('click', function() {
      var input = document.getElementById('gg-add-url');
      var url = input.value.trim();
      if (!url) { setStatus('Please enter a script URL', 'error'); return; }
      if (!url.startsWith('https://')) { setStatus('Only HTTPS URLs are supported', 'error'); return; }
      setStatus('Adding script...');
      invoke('add_script_from_url', { url: url }, function(error, result) {
        if (error) { setStatus('Error: ' + error, 'error'); return; }
        scriptsData.push(result);
        renderScripts();
        hasChanges = true;
        updateApplyButton();
        input.value = '';
        setStatus('Script added! Click Apply & Reload to activate.', 'success');
      });
    });

    document.getElementById('gg-apply-btn').addEventListener('click', function() {
      setStatus('Applying changes...');
      var ids = Object.keys(pendingChanges);
      var index = 0;
      function applyNext() {
        if (index >= ids.length) {
          location.reload();
          return;
        }
        var id = ids[index];
        invoke('toggle_script', { id: id, enabled: pendingChanges[id] }, function(error) {
          if (error) { setStatus('Error: ' + error, 'error'); return; }
          index++;
          applyNext();
        });
      }
      applyNext();
    });

    updateApplyButton();
  }
})();`

// presenceHook reports game activity for rich presence. It waits for the
// third-party event framework with bounded polling and tolerates its absence.
const presenceHook = `(function() {
  if (window.__ggPresenceInitialized) return;
  window.__ggPresenceInitialized = true;

  var currentMapName = null;
  var inGame = false;

  function updatePresence(details, state) {
    window.postMessage({
      kind: 'invoke',
      correlationId: 'req_presence_' + Date.now(),
      operation: 'update_presence',
      args: { details: details || 'GeoGuessr', presence_state: state || null }
    }, '*');
  }

  function initListeners() {
    var gef = window.GeoGuessrEventFramework;
    if (!gef || !gef.events) return false;

    gef.events.addEventListener('game_start', function(event) {
      var state = event.detail;
      inGame = true;
      currentMapName = state.map && state.map.name ? state.map.name : null;
      updatePresence(currentMapName || 'Playing', 'Round 1');
    });
    gef.events.addEventListener('round_start', function(event) {
      var state = event.detail;
      currentMapName = state.map && state.map.name ? state.map.name : null;
      updatePresence(currentMapName || 'Playing', state.current_round ? 'Round ' + state.current_round : null);
    });
    gef.events.addEventListener('round_end', function(event) {
      var state = event.detail;
      var presenceState = state.total_score ?
        'Score: ' + state.total_score.amount + ' pts' :
        'Round ' + state.current_round + ' complete';
      updatePresence(currentMapName || 'Playing', presenceState);
    });
    gef.events.addEventListener('game_end', function() {
      inGame = false;
      updatePresence('Menus', null);
    });
    return true;
  }

  function waitForFramework() {
    // Dependencies get 2 seconds to load the framework; then poll for 10
    // more seconds and give up.
    setTimeout(function() {
      if (initListeners()) return;
      var retries = 0;
      var interval = setInterval(function() {
        if (initListeners() || retries >= 20) clearInterval(interval);
        retries++;
      }, 500);
    }, 2000);
  }

  function isGameUrl() {
    var path = window.location.pathname;
    return path.includes('/game/') || path.includes('/duels') ||
           path.includes('/battle-royale') || path.includes('/challenge');
  }

  function watchForGameExit() {
    setInterval(function() {
      if (inGame && !isGameUrl()) {
        inGame = false;
        updatePresence('Menus', null);
      }
    }, 1000);
  }

  function init() {
    waitForFramework();
    watchForGameExit();
    setTimeout(function() { updatePresence('Menus', null); }, 1000);
  }

  if (document.body) {
    init();
  } else {
    document.addEventListener('DOMContentLoaded', init);
  }
})();`

// bridgeListeners runs in the isolated context and is the only fragment that
// talks to the host. It owns the websocket, correlates invoke responses, and
// relays page-world events (postMessage, gm_xhr, open-external) across.
// The bridgeURLToken placeholder is replaced with the host websocket URL.
const bridgeListeners = `
  var bridgeSocket = null;
  var bridgeQueue = [];

  function bridgeConnect() {
    bridgeSocket = new WebSocket('__BRIDGE_URL__');
    bridgeSocket.onopen = function() {
      var queued = bridgeQueue;
      bridgeQueue = [];
      queued.forEach(function(msg) { bridgeSocket.send(msg); });
    };
    bridgeSocket.onmessage = function(event) {
      var data;
      try { data = JSON.parse(event.data); } catch (e) { return; }
      if (data && data.kind === 'invoke-response') {
        window.postMessage(data, '*');
      }
    };
    bridgeSocket.onclose = function() {
      bridgeSocket = null;
      setTimeout(bridgeConnect, 1000);
    };
  }
  bridgeConnect();

  function bridgeSend(msg) {
    var raw = JSON.stringify(msg);
    if (bridgeSocket && bridgeSocket.readyState === WebSocket.OPEN) {
      bridgeSocket.send(raw);
    } else {
      bridgeQueue.push(raw);
    }
  }

  function bridgeInvoke(operation, args, callback) {
    var correlationId = 'req_' + Date.now() + '_' + Math.random().toString(36).substr(2, 9);
    if (callback) {
      var handler = function(e) {
        if (e.data && e.data.kind === 'invoke-response' && e.data.correlationId === correlationId) {
          window.removeEventListener('message', handler);
          callback(e.data.error, e.data.result);
        }
      };
      window.addEventListener('message', handler);
    }
    bridgeSend({ kind: 'invoke', correlationId: correlationId, operation: operation, args: args || {} });
  }

  // GM_xmlhttpRequest bridge: page events in, proxied responses out.
  window.addEventListener('gm_xhr_request', function(event) {
    var detail = event.detail;
    if (!detail || !detail.requestId || !detail.url) return;
    bridgeInvoke('gm_xhr', {
      request: {
        url: detail.url,
        method: detail.method || 'GET',
        headers: detail.headers,
        data: detail.data
      }
    }, function(error, response) {
      var reply = { requestId: detail.requestId };
      if (error) {
        reply.error = error;
      } else {
        reply.responseText = response.response_text;
        reply.status = response.status;
        reply.statusText = response.status_text;
        reply.responseHeaders = response.response_headers;
      }
      window.dispatchEvent(new CustomEvent('gm_xhr_response', { detail: reply }));
    });
  });

  // External URL opener bridge.
  window.addEventListener('gm_open_external', function(event) {
    var url = event.detail && event.detail.url;
    if (!url) return;
    bridgeInvoke('open_external_url', { url: url }, null);
  });

  // Intercept external link clicks and open them in the default browser.
  document.addEventListener('click', function(e) {
    var target = e.target;
    while (target && target.tagName !== 'A') {
      target = target.parentElement;
    }
    if (!target || !target.href) return;
    var url = target.href;
    if (!url.includes('geoguessr.com')) {
      e.preventDefault();
      e.stopPropagation();
      bridgeInvoke('open_external_url', { url: url }, null);
    }
  }, true);

  // Message bridge: forwards invoke and window-control posts from the page.
  window.addEventListener('message', function(event) {
    var data = event.data;
    if (!data || !data.kind) return;
    if (data.kind === 'window-control') {
      if (!data.action) return;
      bridgeSend({ kind: 'window-control', action: data.action });
    }
    if (data.kind === 'invoke') {
      if (!data.correlationId || !data.operation) return;
      bridgeSend({ kind: 'invoke', correlationId: data.correlationId, operation: data.operation, args: data.args || {} });
    }
  });
  console.log('[GeoGuessr Desktop] Bridge listeners initialized');
`
