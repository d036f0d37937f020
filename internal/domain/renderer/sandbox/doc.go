/*
Package sandbox executes AI-generated component bodies in isolated goja
runtimes before they are served to the render surface.

# Overview

The browser-side render document already carries its own fault barrier, but
some failures (reference errors, unsupported APIs) only show up at execution
time. Running the body server-side first lets the backend detect those
failures early and keep a DOM mirror of the rendered tree for selector
resolution.

Each runtime carries:

  - A preloaded Babel standalone transpiler for the JSX subset
  - A stub UI runtime: createElement records the element tree, hooks return
    inert first-render values
  - Console capture and an execution timeout via interrupt
  - No module system, no timers, no host access

# Architecture

 1. Runtime: goja VM with isolated global scope
 2. Transpiler: Babel loaded once per runtime, reused across renders
 3. Recorder: createElement builds a Node tree instead of touching a DOM
 4. Pool: warmed runtimes, since loading Babel is the expensive part

Sandboxed code cannot reach the filesystem, the network, or any host state;
the only output is the recorded node tree and captured console lines.
*/
package sandbox
