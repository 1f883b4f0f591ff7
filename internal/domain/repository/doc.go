// Package repository define las entidades del dominio y los contratos de
// persistencia que todo backend de almacenamiento debe cumplir.
//
// Los callers dependen SOLO de estas interfaces; nunca del driver concreto
// (fs o postgres). Ambos adapters deben presentar exactamente la misma
// semántica externa: mismos errores, mismo ordenamiento, misma paginación.
package repository
