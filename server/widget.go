package server

// widgetHTML is the minimal chat page served at "/". It talks to the
// /chat endpoint and keeps the user ID in localStorage so reloads stay
// in the same thread.
const widgetHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Troupe Chat</title>
<style>
  body { font-family: sans-serif; max-width: 640px; margin: 2rem auto; }
  #log { border: 1px solid #ccc; border-radius: 6px; padding: 1rem; height: 360px; overflow-y: auto; }
  .user { color: #0a4d8c; margin: .4rem 0; }
  .bot { color: #222; margin: .4rem 0; white-space: pre-wrap; }
  form { display: flex; gap: .5rem; margin-top: .75rem; }
  input { flex: 1; padding: .5rem; }
</style>
</head>
<body>
<h1>Troupe Chat</h1>
<div id="log"></div>
<form id="form">
  <input id="input" autocomplete="off" placeholder="Ask something..." autofocus>
  <button type="submit">Send</button>
</form>
<script>
  const log = document.getElementById("log");
  const form = document.getElementById("form");
  const input = document.getElementById("input");

  let userID = localStorage.getItem("troupe_user_id");
  if (!userID) {
    userID = crypto.randomUUID();
    localStorage.setItem("troupe_user_id", userID);
  }

  function append(cls, text) {
    const div = document.createElement("div");
    div.className = cls;
    div.textContent = text;
    log.appendChild(div);
    log.scrollTop = log.scrollHeight;
  }

  form.addEventListener("submit", async (e) => {
    e.preventDefault();
    const message = input.value.trim();
    if (!message) return;
    input.value = "";
    append("user", "You: " + message);
    try {
      const res = await fetch("/chat", {
        method: "POST",
        headers: { "Content-Type": "application/json" },
        body: JSON.stringify({ user_id: userID, message })
      });
      const data = await res.json();
      append("bot", data.reply || data.error || "(no reply)");
    } catch (err) {
      append("bot", "Error: " + err);
    }
  });
</script>
</body>
</html>
`
