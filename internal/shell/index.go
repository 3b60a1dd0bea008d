package shell

// indexHTML is the single-page preview surface: a canvas the session's
// decompressed bitmap rectangles are blitted onto, plus mouse/keyboard
// listeners that relay input back over the same WebSocket.
const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>godrp</title>
<style>html,body{margin:0;background:#222;}canvas{display:block;margin:0 auto;image-rendering:pixelated;}</style>
</head>
<body>
<canvas id="screen"></canvas>
<script>
const canvas = document.getElementById('screen');
const ctx = canvas.getContext('2d');
const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');
ws.binaryType = 'arraybuffer';

ws.onmessage = (ev) => {
  const view = new DataView(ev.data);
  const left = view.getUint16(0, true);
  const top = view.getUint16(2, true);
  const right = view.getUint16(4, true);
  const bottom = view.getUint16(6, true);
  const w = right - left, h = bottom - top;
  if (canvas.width < right) canvas.width = right;
  if (canvas.height < bottom) canvas.height = bottom;

  const pixels = new Uint8ClampedArray(ev.data, 10, w * h * 4);
  const image = new ImageData(pixels, w, h);
  ctx.putImageData(image, left, top);
};

// The server side numbers buttons 0 left, 1 right, 2 middle, and encodes
// any other number as a plain move; the DOM numbers them 0 left, 1 middle,
// 2 right.
const toRdpButton = (b) => [0, 2, 1][b] ?? 255;
canvas.addEventListener('mousemove', (e) => {
  ws.send(JSON.stringify({type: 'mouse', x: e.offsetX, y: e.offsetY, button: 255, down: false}));
});
canvas.addEventListener('mousedown', (e) => {
  ws.send(JSON.stringify({type: 'mouse', x: e.offsetX, y: e.offsetY, button: toRdpButton(e.button), down: true}));
});
canvas.addEventListener('mouseup', (e) => {
  ws.send(JSON.stringify({type: 'mouse', x: e.offsetX, y: e.offsetY, button: toRdpButton(e.button), down: false}));
});
window.addEventListener('keydown', (e) => {
  ws.send(JSON.stringify({type: 'key', code: e.code, down: true}));
  e.preventDefault();
});
window.addEventListener('keyup', (e) => {
  ws.send(JSON.stringify({type: 'key', code: e.code, down: false}));
  e.preventDefault();
});
</script>
</body>
</html>
`
