// Package domain define contratos e tipos de domínio do gateway key-value.
//
// Aqui ficam os comandos aceitos pelos atores, o reply slot de uso único,
// a taxonomia de erros e os contratos do backend. Este pacote não depende de
// net/http, de Redis nem de implementações concretas.
package domain
