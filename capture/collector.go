package capture

// CollectorScript is installed in every document of a recorded page. It
// queues events on window.__recorder; DrainExpression empties the queue.
// The queue survives full page loads through sessionStorage.
const CollectorScript = `(function () {
  if (window.__recorder) { return true; }
  var KEY = "__recorder_queue";
  var queue = [];
  var ss = null;
  try { ss = window.sessionStorage; ss.getItem(KEY); } catch (e) { ss = null; }
  if (ss) {
    try { queue = JSON.parse(ss.getItem(KEY) || "[]"); } catch (e) {}
    ss.removeItem(KEY);
  }

  function context() {
    return {
      timestamp: Date.now(),
      url: location.href,
      viewport: { width: window.innerWidth, height: window.innerHeight }
    };
  }
  function push(type, data) { queue.push({ type: type, data: data, context: context() }); }

  function siblingIndex(el) {
    var i = 1, s = el;
    while ((s = s.previousElementSibling)) { if (s.tagName === el.tagName) { i++; } }
    return i;
  }
  function attributes(el) {
    var out = {};
    for (var i = 0; i < el.attributes.length; i++) {
      var a = el.attributes[i];
      if (a.name !== "class" && a.name !== "style") { out[a.name] = a.value; }
    }
    return out;
  }
  function describe(el) {
    var d = {
      selector: "",
      tagName: el.tagName.toLowerCase(),
      className: typeof el.className === "string" ? el.className : "",
      attributes: attributes(el),
      siblingIndex: siblingIndex(el),
      ancestors: []
    };
    for (var p = el.parentElement, n = 0; p && p !== document.body && n < 5; p = p.parentElement, n++) {
      d.ancestors.push({ tagName: p.tagName.toLowerCase(), attributes: attributes(p), siblingIndex: siblingIndex(p) });
    }
    return d;
  }
  function modifiers(e) {
    return { ctrl: e.ctrlKey, alt: e.altKey, shift: e.shiftKey, meta: e.metaKey };
  }
  function sensitive(el) {
    return el.type === "password" || /(password|secret|token|card|cvv)/i.test(el.name || el.id || "");
  }

  document.addEventListener("click", function (e) {
    var d = describe(e.target);
    d.coordinates = { x: e.clientX, y: e.clientY };
    push("click", d);
  }, true);
  document.addEventListener("dblclick", function (e) { push("double-click", describe(e.target)); }, true);
  document.addEventListener("contextmenu", function (e) { push("right-click", describe(e.target)); }, true);
  document.addEventListener("input", function (e) {
    var el = e.target;
    if (el.type === "checkbox" || el.type === "radio" || el.tagName === "SELECT") { return; }
    var d = describe(el);
    d.value = sensitive(el) ? "***" : String(el.value || "");
    d.inputType = el.type || "text";
    push("input", d);
  }, true);
  document.addEventListener("change", function (e) {
    var el = e.target;
    if (el.tagName !== "SELECT" && el.type !== "checkbox" && el.type !== "radio") { return; }
    var d = describe(el);
    d.value = String(el.value || "");
    d.inputType = el.type || "";
    d.checked = !!el.checked;
    push("change", d);
  }, true);
  document.addEventListener("submit", function (e) {
    var d = describe(e.target), data = {};
    try { new FormData(e.target).forEach(function (v, k) { data[k] = typeof v === "string" ? v : "[file]"; }); } catch (err) {}
    d.data = data;
    push("submit", d);
  }, true);
  document.addEventListener("keydown", function (e) {
    if (["Enter", "Escape", "Tab"].indexOf(e.key) < 0 && !(e.ctrlKey || e.metaKey || e.altKey)) { return; }
    var d = e.target && e.target !== document.body ? describe(e.target) : {};
    d.key = e.key;
    d.modifiers = modifiers(e);
    push("key-press", d);
  }, true);
  var scrollTimer;
  window.addEventListener("scroll", function () {
    clearTimeout(scrollTimer);
    scrollTimer = setTimeout(function () { push("scroll", { scrollX: window.scrollX, scrollY: window.scrollY }); }, 250);
  }, true);
  ["pushState", "replaceState"].forEach(function (name) {
    var orig = history[name];
    history[name] = function () {
      var r = orig.apply(this, arguments);
      push("navigation", { type: name.toLowerCase(), url: location.href });
      return r;
    };
  });
  window.addEventListener("popstate", function () { push("navigation", { type: "popstate", url: location.href }); });
  window.addEventListener("beforeunload", function () {
    push("before-unload", { url: location.href });
    try { if (ss) { ss.setItem(KEY, JSON.stringify(queue)); } } catch (e) {}
  });

  if (location.protocol !== "about:" && !(ss && ss.getItem("__recorder_started"))) {
    if (ss) { ss.setItem("__recorder_started", "1"); }
    push("session-start", {
      sessionId: "",
      url: location.href,
      userAgent: navigator.userAgent,
      viewport: { width: window.innerWidth, height: window.innerHeight }
    });
  }

  window.__recorder = {
    drain: function () { var out = queue; queue = []; return out; }
  };
  return true;
})()`

// DrainExpression returns and clears the queued events as a JSON array.
const DrainExpression = `window.__recorder ? window.__recorder.drain() : []`
