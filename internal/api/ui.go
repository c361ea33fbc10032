package api

// chatUIHTML is handed to the client only after a successful login.
const chatUIHTML = `
<style>
  .chat-app { display: flex; flex-direction: column; height: 100%; background: #121212; font-family: -apple-system, "Segoe UI", Roboto, sans-serif; overflow: hidden; }
  .chat-header { padding: 15px 20px; background: rgba(30,30,30,0.95); color: #fff; font-weight: 600; border-bottom: 1px solid #333; display: flex; align-items: center; gap: 10px; }
  .chat-status { width: 8px; height: 8px; background: #00e676; border-radius: 50%; box-shadow: 0 0 8px #00e676; }
  .chat-messages { flex: 1; overflow-y: auto; padding: 20px; display: flex; flex-direction: column; gap: 16px; }
  .msg-bubble { align-self: flex-start; max-width: 85%; padding: 12px 16px; background: #2c2c2c; color: #e0e0e0; border-radius: 18px; font-size: 15px; word-wrap: break-word; }
  .msg-bubble.pending { opacity: 0.6; }
  .msg-time { font-size: 10px; color: #888; margin-top: 6px; text-align: right; }
  .chat-input-area { padding: 12px 16px; background: rgba(30,30,30,0.95); border-top: 1px solid #333; display: flex; gap: 12px; align-items: center; }
  .chat-input { flex: 1; background: #252525; border: 1px solid #3a3a3a; padding: 12px 18px; border-radius: 24px; color: #fff; font-size: 16px; outline: none; }
  .send-btn { background: #007aff; border: none; width: 44px; height: 44px; border-radius: 50%; color: #fff; cursor: pointer; }
</style>
<div class="chat-app">
  <div class="chat-header"><div class="chat-status"></div><span>Secure Channel</span></div>
  <div id="messages" class="chat-messages"></div>
  <form id="input-form" class="chat-input-area">
      <input type="text" class="chat-input" placeholder="Type a message..." autocomplete="off">
      <input type="file" id="file-input" hidden>
      <button type="submit" class="send-btn">&#10148;</button>
  </form>
</div>
`
