package compile

// daemonScript is the compiler host written to .wu-cache/wu-compiler.cjs.
// It resolves esbuild and the framework compilers from the project's own
// node_modules, answers line-framed COMPILE requests on stdin, and in
// --once mode compiles a single file from stdin to stdout.
const daemonScript = `#!/usr/bin/env node
'use strict';

function tryRequire(name) {
  try { return require(require.resolve(name, { paths: [process.cwd()] })); }
  catch (e) { return null; }
}

const esbuild = tryRequire('esbuild');

function compile(kind, filename, loader, hint, source) {
  switch (kind) {
    case 'jsx':
    case 'solid':
    case 'qwik': {
      if (!esbuild) throw new Error('esbuild not installed');
      const opts = { loader: loader || 'jsx', sourcefile: filename, format: 'esm' };
      if (kind === 'solid') { opts.jsx = 'preserve'; }
      const out = esbuild.transformSync(source, opts);
      if (kind === 'solid') {
        const babel = tryRequire('@babel/core');
        const preset = tryRequire('babel-preset-solid');
        if (!babel || !preset) throw new Error('babel-preset-solid not installed');
        return babel.transformSync(out.code, { presets: [preset], filename }).code;
      }
      return out.code;
    }
    case 'svelte': {
      const svelte = tryRequire('svelte/compiler');
      if (!svelte) throw new Error('svelte not installed');
      return svelte.compile(source, { filename, generate: 'client', dev: true }).js.code;
    }
    case 'vue': {
      const sfc = tryRequire('vue/compiler-sfc') || tryRequire('@vue/compiler-sfc');
      if (!sfc) throw new Error('@vue/compiler-sfc not installed');
      const id = filename.replace(/[^a-z0-9]/gi, '-');
      const parsed = sfc.parse(source, { filename });
      const script = sfc.compileScript(parsed.descriptor, { id, inlineTemplate: true });
      return script.content;
    }
    case 'angular':
    case 'ts': {
      if (!esbuild) throw new Error('esbuild not installed');
      return esbuild.transformSync(source, { loader: 'ts', sourcefile: filename, format: 'esm' }).code;
    }
    default:
      throw new Error('unknown compile kind: ' + kind);
  }
}

function readAll(stream, cb) {
  const chunks = [];
  stream.on('data', (c) => chunks.push(c));
  stream.on('end', () => cb(Buffer.concat(chunks)));
}

if (process.argv[2] === '--once') {
  const kind = process.argv[3];
  const filename = process.argv[4] || '<stdin>';
  readAll(process.stdin, (source) => {
    try {
      process.stdout.write(compile(kind, filename, '', '', source.toString('utf8')));
    } catch (e) {
      process.stderr.write(String(e.message || e) + '\n');
      process.exit(1);
    }
  });
} else {
  let buffer = Buffer.alloc(0);
  process.stdin.on('data', (chunk) => {
    buffer = Buffer.concat([buffer, chunk]);
    for (;;) {
      const nl = buffer.indexOf(0x0a);
      if (nl < 0) return;
      const header = buffer.slice(0, nl).toString('utf8').split('\t');
      if (header[0] !== 'COMPILE' || header.length < 6) {
        buffer = buffer.slice(nl + 1);
        continue;
      }
      const len = parseInt(header[5], 10);
      if (buffer.length < nl + 1 + len) return;
      const source = buffer.slice(nl + 1, nl + 1 + len).toString('utf8');
      buffer = buffer.slice(nl + 1 + len);
      try {
        const code = compile(header[1], header[2], header[3], header[4], source);
        const body = Buffer.from(code, 'utf8');
        process.stdout.write('OK\t' + body.length + '\n');
        process.stdout.write(body);
      } catch (e) {
        const msg = String(e.message || e).split('\n')[0];
        process.stdout.write('ERR\t' + msg + '\n');
      }
    }
  });
}
`
